// Package kernlog constructs the kernel's structured diagnostic
// logger. Guest console I/O (UART/terminal output the emulated program
// itself writes) is a separate stream handled by the syscall surface;
// this logger is for the kernel's own fault and lifecycle messages,
// mirroring how a real kernel keeps dmesg separate from a tty.
package kernlog

import "go.uber.org/zap"

// New builds a human-readable console logger. debug enables
// development-mode stack traces and debug-level output, matching the
// verbosity toggle the teacher's own CLI exposed as a single -debug
// flag.
func New(debug bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.TimeKey = ""
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
