package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/quakeflow/picker/internal/adapters/http/api"
	app "github.com/quakeflow/picker/internal/app"
	"github.com/quakeflow/picker/internal/config"
	"github.com/quakeflow/picker/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("PICKER_ADDR", ":8080")
			_ = os.Setenv("PICKER_QUEUE_SIZE", "1000")
			_ = os.Setenv("PICKER_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("PICKER_ADDR")
				_ = os.Unsetenv("PICKER_QUEUE_SIZE")
				_ = os.Unsetenv("PICKER_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithWorkerCount(8),
					app.WithQueueSize(2000),
					app.WithPickDir(t.TempDir()),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := app.New(app.WithPickDir(t.TempDir()))
			ctx := context.Background()
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			mux := http.NewServeMux()
			apiServer := api.NewServer(svc, svc)
			apiServer.Register(ctx, mux)

			srv := &http.Server{
				Addr:              ":0",
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			convey.So(srv, convey.ShouldNotBeNil)
			convey.So(srv.Handler, convey.ShouldEqual, mux)
		})
	})
}
