package cmd

import (
	"github.com/mcvu-symposium/ms-go-registration/config"
	"github.com/sirupsen/logrus"
)

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	return nil
}
