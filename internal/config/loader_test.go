package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/revstat/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("REVSTAT_ADDR", ":8080")
			_ = os.Setenv("REVSTAT_QUEUE_SIZE", "12")
			_ = os.Setenv("REVSTAT_WORKER_COUNT", "3")
			_ = os.Setenv("REVSTAT_STATS_DB", "/tmp/stats.json")
			_ = os.Setenv("REVSTAT_TRANSITIVE_ALIASES", "true")
			_ = os.Setenv("REVSTAT_TIE_BREAK", "last")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 12)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.StatsDB, convey.ShouldEqual, "/tmp/stats.json")
				convey.So(cfg.TransitiveAliases, convey.ShouldBeTrue)
				convey.So(cfg.TieBreak, convey.ShouldEqual, "last")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# comments are fine
identity_map: ./identity.yaml
stats_db: ./stats.json
producer: mail
release: v6.9
self_review_threshold: 2
sample_size: 50
lock_timeout_ms: 250
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("REVSTAT_CONFIG", tmpFile)
			_ = os.Setenv("REVSTAT_SAMPLE_SIZE", "75")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file with env on top", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.IdentityMap, convey.ShouldEqual, "./identity.yaml")
				convey.So(cfg.Producer, convey.ShouldEqual, "mail")
				convey.So(cfg.Release, convey.ShouldEqual, "v6.9")
				convey.So(cfg.SelfReviewThreshold, convey.ShouldEqual, 2)
				convey.So(cfg.SampleSize, convey.ShouldEqual, 75)
				convey.So(cfg.LockTimeoutMS, convey.ShouldEqual, 250)
			})
		})

		convey.Convey("When the YAML file is missing", func() {
			clearConfigEnvVars()

			cfg, err := config.LoadFile(ctx, "/nonexistent/revstat.yaml")

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file is malformed", func() {
			tmpFile := createTempConfigFile(t, "addr: [unclosed\n")
			clearConfigEnvVars()

			cfg, err := config.LoadFile(ctx, tmpFile)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("REVSTAT_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a value fails validation", func() {
			tmpFile := createTempConfigFile(t, "addr: \"\"\n")
			_ = os.Setenv("REVSTAT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the offending key is named", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"REVSTAT_CONFIG",
		"REVSTAT_ADDR",
		"REVSTAT_QUEUE_SIZE",
		"REVSTAT_WORKER_COUNT",
		"REVSTAT_STATS_DB",
		"REVSTAT_SAMPLE_SIZE",
		"REVSTAT_TRANSITIVE_ALIASES",
		"REVSTAT_TIE_BREAK",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "revstat-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpFile.Name()
}
