package state

import (
	"path/filepath"
	"sync"

	"github.com/avdberg/p1bridge/helpers"
	"github.com/avdberg/p1bridge/log2"
	"github.com/avdberg/p1bridge/tele"
	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Hardware struct {
		Serial struct {
			Device string `hcl:"device"`
			Baud   int    `hcl:"baud"`
		} `hcl:"serial"`
		Led struct {
			Enable    bool   `hcl:"enable"`
			PinChip   string `hcl:"pin_chip"`
			Pin       string `hcl:"pin"`
			ActiveLow bool   `hcl:"active_low"`
		} `hcl:"led"`
		Radio struct {
			CtrlPath string `hcl:"ctrl_path"`
		} `hcl:"radio"`
	} `hcl:"hardware"`

	Link struct {
		SSID        string `hcl:"ssid"`
		Password    string `hcl:"password"`
		PollDelayMs int    `hcl:"poll_delay_ms"`
		TimeoutSec  int    `hcl:"timeout_sec"` // 0 = retry forever
	} `hcl:"link"`

	Sink struct {
		Address           string `hcl:"address"`
		NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	} `hcl:"sink"`

	Bridge struct {
		BufferSize  int `hcl:"buffer_size"`
		PollDelayMs int `hcl:"poll_delay_ms"`
	} `hcl:"bridge"`

	Tele tele.Config `hcl:"tele"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
