package main

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/aukilabs/fourd/level"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if strings.TrimSpace(conf.ServerID) == "" {
		return errors.New("server id is empty")
	}

	if conf.SyncClockInterval <= 0 || conf.ClientIdleTimeout <= 0 || conf.LogSummaryInterval <= 0 {
		return errors.New("intervals and timeouts must be positive").
			WithTag("sync_clock_interval", conf.SyncClockInterval).
			WithTag("client_idle_timeout", conf.ClientIdleTimeout).
			WithTag("log_summary_interval", conf.LogSummaryInterval)
	}
	return nil
}

// loadLevel returns the level described by the level file when there is one,
// or by the level options otherwise.
func loadLevel(conf levelConfig) (level.Level, error) {
	if conf.File != "" {
		l, err := level.Load(conf.File)
		if err != nil {
			return level.Level{}, err
		}
		if l.Name == "" {
			l.Name = conf.Name
		}
		return l, nil
	}

	dims, err := parseInts(conf.Dims)
	if err != nil {
		return level.Level{}, errors.New("invalid level dims").Wrap(err)
	}

	origin, err := parseFloats(conf.Origin)
	if err != nil {
		return level.Level{}, errors.New("invalid level origin").Wrap(err)
	}

	cellSize, err := parseFloat(conf.CellSize)
	if err != nil {
		return level.Level{}, errors.New("invalid level cell size").Wrap(err)
	}

	normal, err := parseFloats(conf.GroundNormal)
	if err != nil {
		return level.Level{}, errors.New("invalid level ground normal").Wrap(err)
	}

	height, err := parseFloat(conf.GroundHeight)
	if err != nil {
		return level.Level{}, errors.New("invalid level ground height").Wrap(err)
	}

	l := level.Level{
		Name:     conf.Name,
		Origin:   origin,
		CellSize: cellSize,
		Dims:     dims,
		Ground: level.Ground{
			Normal: normal,
			Height: height,
		},
	}
	if err := l.Validate(); err != nil {
		return level.Level{}, err
	}
	return l, nil
}

func splitList(s string) []string {
	var res []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}

func parseInts(s string) ([]int, error) {
	var res []int
	for _, v := range splitList(s) {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("parsing integer failed").
				WithTag("value", v).
				Wrap(err)
		}
		res = append(res, i)
	}
	return res, nil
}

func parseFloats(s string) ([]float32, error) {
	var res []float32
	for _, v := range splitList(s) {
		f, err := parseFloat(v)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

func parseFloat(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, errors.New("parsing number failed").
			WithTag("value", s).
			Wrap(err)
	}
	return float32(f), nil
}
