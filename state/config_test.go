package state

import (
	"strings"
	"testing"

	"github.com/avdberg/p1bridge/log2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		sources   map[string]string
		check     func(testing.TB, *Config)
		expectErr string
	}
	cases := []Case{
		{"empty", map[string]string{"main": ""}, func(t testing.TB, c *Config) {
			assert.Equal(t, "", c.Sink.Address)
		}, ""},

		{"serial",
			map[string]string{"main": `hardware { serial { device = "/dev/ttyUSB0" baud = 115200 } }`},
			func(t testing.TB, c *Config) {
				assert.Equal(t, "/dev/ttyUSB0", c.Hardware.Serial.Device)
				assert.Equal(t, 115200, c.Hardware.Serial.Baud)
			},
			"",
		},

		{"sink-and-link",
			map[string]string{"main": `
link { ssid = "home" password = "hunter2" timeout_sec = 0 }
sink { address = "192.168.1.50:6969" network_timeout_sec = 10 }
bridge { buffer_size = 8192 poll_delay_ms = 100 }`},
			func(t testing.TB, c *Config) {
				assert.Equal(t, "192.168.1.50:6969", c.Sink.Address)
				assert.Equal(t, "home", c.Link.SSID)
				assert.Equal(t, 8192, c.Bridge.BufferSize)
				assert.Equal(t, 100, c.Bridge.PollDelayMs)
			},
			"",
		},

		{"tele",
			map[string]string{"main": `tele { enable = true client_id = "p1home" mqtt_broker = "tcp://broker:1883" }`},
			func(t testing.TB, c *Config) {
				assert.True(t, c.Tele.Enabled)
				assert.Equal(t, "p1home", c.Tele.ClientID)
			},
			"",
		},

		{"include",
			map[string]string{
				"main":  `include "local" {} sink { address = "will-be-kept:1" }`,
				"local": `hardware { led { enable = true pin_chip = "/dev/gpiochip0" pin = "2" } }`,
			},
			func(t testing.TB, c *Config) {
				assert.Equal(t, "will-be-kept:1", c.Sink.Address)
				assert.True(t, c.Hardware.Led.Enable)
				assert.Equal(t, "2", c.Hardware.Led.Pin)
			},
			"",
		},

		{"include-optional",
			map[string]string{"main": `include "missing" { optional = true }`},
			func(t testing.TB, c *Config) {},
			"",
		},

		{"include-missing",
			map[string]string{"main": `include "nope" {}`},
			nil,
			"config required name=nope",
		},

		{"syntax-error",
			map[string]string{"main": `hardware { serial {`},
			nil,
			"config unmarshal source=main",
		},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			log := log2.NewFunc(t.Logf, log2.LDebug)
			fs := NewMockFullReader(c.sources)
			cfg, err := ReadConfig(log, fs, "main")
			if c.expectErr == "" {
				require.NoError(t, err)
				c.check(t, cfg)
			} else {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), c.expectErr),
					"err=%v expected substring=%s", err, c.expectErr)
			}
		})
	}
}
