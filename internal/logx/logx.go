package logx

import (
	"github.com/sirupsen/logrus"
)

// New bikin logger bersama utk semua komponen; level dari config.
func New(service, level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	l.SetLevel(lv)
	l.AddHook(&serviceHook{service: service})
	return l
}

type serviceHook struct{ service string }

func (h *serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = h.service
	return nil
}
