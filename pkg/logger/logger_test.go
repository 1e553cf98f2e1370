package logger_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/NimnaKs/CG-COMPOSER/pkg/logger"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Then Get returns a usable logger", func() {
			log := logger.Get()
			So(log, ShouldNotBeNil)
			So(func() {
				log.Info(context.Background(), "message",
					logger.String("key", "value"),
					logger.Int("count", 3),
					logger.Bool("flag", true),
				)
			}, ShouldNotPanic)
		})

		Convey("Then Named derives a child logger", func() {
			So(logger.Named("composer"), ShouldNotBeNil)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Then known names are accepted", func() {
			for _, level := range []string{"debug", "info", "warn", "warning", "error", "", "  DEBUG "} {
				So(logger.SetLevelString(level), ShouldBeNil)
			}
		})

		Convey("Then unknown names are rejected", func() {
			So(logger.SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}
