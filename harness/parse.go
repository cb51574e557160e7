package harness

import (
	"strconv"
	"strings"

	"github.com/evilsocket/islazy/str"
	"github.com/pkg/errors"
)

// ParseDevices parses a list of device identifiers such as "0,1,4-7".
func ParseDevices(s string) ([]int, error) {
	devices := []int{}
	seen := map[int]bool{}

	for _, part := range str.SplitBy(str.Trim(s), ",") {
		part = str.Trim(part)
		if part == "" {
			continue
		}

		first, last := part, part
		if i := strings.Index(part, "-"); i > 0 {
			first, last = part[:i], part[i+1:]
		}

		from, err := strconv.Atoi(str.Trim(first))
		if err != nil || from < 0 {
			return nil, errors.Wrapf(ErrInvalidArgument, "invalid device '%s'", part)
		}
		to, err := strconv.Atoi(str.Trim(last))
		if err != nil || to < from {
			return nil, errors.Wrapf(ErrInvalidArgument, "invalid device range '%s'", part)
		}

		for id := from; id <= to; id++ {
			if seen[id] {
				return nil, errors.Wrapf(ErrInvalidArgument, "device %d listed twice", id)
			}
			seen[id] = true
			devices = append(devices, id)
		}
	}

	if len(devices) == 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "no devices in '%s'", s)
	}

	return devices, nil
}

// ParseShape parses a buffer shape such as "1000000x10".
func ParseShape(s string) ([]int, error) {
	shape := []int{}
	for _, part := range strings.Split(strings.ToLower(str.Trim(s)), "x") {
		dim, err := strconv.Atoi(str.Trim(part))
		if err != nil || dim <= 0 {
			return nil, errors.Wrapf(ErrInvalidArgument, "invalid dimension '%s' in shape '%s'", part, s)
		}
		shape = append(shape, dim)
	}

	return shape, nil
}
