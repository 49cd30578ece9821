package mqtt

import (
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// pahoLogger adapts a zap logger to the paho logging interface.
type pahoLogger struct {
	log   *zap.SugaredLogger
	level zapcore.Level
}

func (p pahoLogger) Println(v ...any) {
	p.log.Logln(p.level, v...)
}

func (p pahoLogger) Printf(format string, v ...any) {
	p.log.Logf(p.level, format, v...)
}

// RouteLibraryLogs sends paho's internal error and warning output to log.
// paho keeps its loggers in package variables, so this affects every session.
func RouteLibraryLogs(log *zap.SugaredLogger) {
	log = log.Named("paho")

	pahomqtt.CRITICAL = pahoLogger{log: log, level: zapcore.ErrorLevel}
	pahomqtt.ERROR = pahoLogger{log: log, level: zapcore.ErrorLevel}
	pahomqtt.WARN = pahoLogger{log: log, level: zapcore.WarnLevel}
}
