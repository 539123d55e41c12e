package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, newApp().Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"test", "--log-level", "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", excerpt("short text", 40))
	assert.Equal(t, "one line", excerpt("one\n  line", 40))
	assert.Equal(t, "abcde...", excerpt("abcdefgh", 5))
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	app := &cli.App{
		Name: "relatio",
		Commands: []*cli.Command{
			{
				Name:   "search",
				Action: searchCommand,
				Flags:  commonFlags(),
			},
		},
	}

	err := app.Run([]string{"relatio", "search"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}
