package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"songshelf/src/listing"
	"songshelf/src/util"
)

const confFile = "config.yaml"

type config struct {
	Address string `yaml:"bind"`
	URLRoot string `yaml:"url_root"`

	BaseURL       string `yaml:"base_url"`
	AlbumsRoot    string `yaml:"albums_root"`
	DefaultFolder string `yaml:"default_folder"`

	// Zero disables the timeout.
	HTTPTimeout         time.Duration `yaml:"http_timeout"`
	MetadataConcurrency int           `yaml:"metadata_concurrency"`
	ProgressInterval    time.Duration `yaml:"progress_interval"`

	MPD struct {
		Network  string  `yaml:"network"`
		Address  string  `yaml:"address"`
		Password *string `yaml:"password"`
	} `yaml:"mpd"`
}

func defaultConfig() config {
	var conf config
	conf.URLRoot = "/"
	conf.AlbumsRoot = "songs"
	conf.DefaultFolder = "songs"
	conf.MetadataConcurrency = listing.DefaultConcurrency
	conf.ProgressInterval = time.Second
	conf.MPD.Network = "tcp"
	conf.MPD.Address = "localhost:6600"
	return conf
}

func (conf *config) Validate() (errs []error) {
	if conf.Address == "" {
		errs = append(errs, fmt.Errorf("config: `bind` is required"))
	}
	if conf.BaseURL == "" {
		errs = append(errs, fmt.Errorf("config: `base_url` is required"))
	} else if _, err := util.NormalizeBaseURL(conf.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("config: `base_url`: %v", err))
	}
	if conf.AlbumsRoot == "" {
		errs = append(errs, fmt.Errorf("config: `albums_root` must not be empty"))
	}
	if conf.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: `http_timeout` must not be negative"))
	}
	if conf.MetadataConcurrency < 1 {
		errs = append(errs, fmt.Errorf("config: `metadata_concurrency` must be at least 1"))
	}
	if conf.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: `progress_interval` must be positive"))
	}
	if conf.MPD.Address == "" {
		errs = append(errs, fmt.Errorf("config: `mpd.address` is required"))
	}
	return
}

func LoadConfig(filename string) (*config, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return decodeConfig(fd)
}

func decodeConfig(r io.Reader) (*config, error) {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	conf := defaultConfig()
	if err := d.Decode(&conf); err != nil {
		return nil, err
	}
	return &conf, nil
}
