package common

import (
	"flag"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/evilsocket/islazy/log"
	"github.com/pbnjay/memory"
	"github.com/sirupsen/logrus"
)

// Version of the xfer tools.
const Version = "1.0.0"

// Options shared by every command.
type Options struct {
	LogFile    string
	LogDebug   bool
	CPUProfile string
	MemProfile string
}

// RegisterFlags binds the shared options to the command line flags.
func RegisterFlags() *Options {
	o := &Options{}
	flag.StringVar(&o.LogFile, "log-file", "", "If filled, logs will be written to this file.")
	flag.BoolVar(&o.LogDebug, "debug", false, "Enable debug logs.")
	flag.StringVar(&o.CPUProfile, "cpu-profile", "", "Write CPU profile to this file.")
	flag.StringVar(&o.MemProfile, "mem-profile", "", "Write memory profile to this file.")
	return o
}

// Start sets up logging, profiling and the signal handlers, Stop must be
// called before the command returns.
func (o *Options) Start(name string) {
	SetupLogging(o.LogFile, o.LogDebug)
	StartProfiling(o.CPUProfile)
	SetupSignals(func(_ os.Signal) { DoCleanup(o.CPUProfile, o.MemProfile) })

	log.Debug("%s v%s (%s %s/%s, %d cpus, %s of memory)", name, Version, runtime.Version(),
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), humanize.Bytes(memory.TotalMemory()))
}

// Stop flushes the profiles and closes the log.
func (o *Options) Stop() {
	DoCleanup(o.CPUProfile, o.MemProfile)
	TeardownLogging()
}

func StartProfiling(cpuProfile string) {
	if cpuProfile == "" {
		return
	}

	if f, err := os.Create(cpuProfile); err != nil {
		log.Fatal("%v", err)
	} else if err := pprof.StartCPUProfile(f); err != nil {
		log.Fatal("%v", err)
	}
}

func SetupSignals(handlers ...func(os.Signal)) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		sig := <-sigChan
		log.Info("got signal %v, measurement interrupted", sig)
		for _, handler := range handlers {
			handler(sig)
		}

		os.Exit(1)
	}()
}

func DoCleanup(cpuProfile, memProfile string) {
	if cpuProfile != "" {
		log.Debug("saving cpu profile to %s ...", cpuProfile)
		pprof.StopCPUProfile()
	}

	if memProfile != "" {
		log.Debug("saving memory profile to %s ...", memProfile)
		f, err := os.Create(memProfile)
		if err != nil {
			log.Warning("could not create memory profile: %s", err)
			return
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Warning("could not write memory profile: %s", err)
		}
	}
}

func SetupLogging(logFile string, logDebug bool) {
	log.OnFatal = log.ExitOnFatal
	if logFile != "" {
		log.Output = logFile

		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			panic(err)
		}

		logrus.SetOutput(f)
	} else {
		// keep stdout for the reports
		logrus.SetOutput(os.Stderr)
	}

	if logDebug {
		log.Level = log.DEBUG
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := log.Open(); err != nil {
		panic(err)
	}
}

func TeardownLogging() {
	log.Close()
}
