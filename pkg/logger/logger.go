package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/osms-business/osms_server/config"
)

var Log = zap.NewNop()

// Init 初始化全局日志：JSON 输出到 stdout，配置了文件名时同时写入滚动日志文件
func Init(cfg *config.LogConfig) error {
	level := new(zapcore.Level)
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return err
	}

	core := zapcore.NewCore(newEncoder(), newWriter(cfg), level)
	Log = zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(Log)
	return nil
}

func newEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

func newWriter(cfg *config.LogConfig) zapcore.WriteSyncer {
	console := zapcore.AddSync(os.Stdout)
	if cfg.Filename == "" {
		return console
	}

	file := &zapcore.BufferedWriteSyncer{
		WS: zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}),
		Size:          256 * 1024,
		FlushInterval: 5 * time.Second,
	}
	return zapcore.NewMultiWriteSyncer(console, file)
}

// Sync 刷新缓冲的日志
func Sync() {
	_ = Log.Sync()
}
