// Package log is component M: zap-based structured logging with
// optional daily file rotation, and an otel/metric-backed recorder for
// the executor/measurement/interpreter counters. This module is a
// library, not a service, so Setup only ever installs a global zap
// logger when the caller opts in; nothing here runs implicitly.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Yogirajpp/qvm/common"
	"github.com/Yogirajpp/qvm/core"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Setup builds a zap.Logger from conf and installs it as the package
// global (zap.L()), the same pattern the teacher uses throughout its
// task implementations. When conf.LogFile is set, output is written
// through file-rotatelogs with a daily rotation pattern; otherwise it
// goes to stderr.
func Setup(conf *core.Conf) (*zap.Logger, error) {
	level, err := parseLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var sink zapcore.WriteSyncer
	if conf.LogFile != "" {
		if err := common.IsDirWritable(filepath.Dir(conf.LogFile)); err != nil {
			return nil, core.New(core.KindInvalidArgument, "log directory is not writable", err)
		}
		rl, err := rotatelogs.New(
			conf.LogFile+".%Y%m%d",
			rotatelogs.WithLinkName(conf.LogFile),
			rotatelogs.WithMaxAge(30*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return nil, core.New(core.KindInvalidArgument, "failed to open rotating log file", err)
		}
		sink = zapcore.AddSync(rl)
	} else {
		sink = zapcore.AddSync(os.Stderr)
	}

	core_ := zapcore.NewCore(encoder, sink, level)
	logger := zap.New(core_)
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
