package source

import (
	"context"
	"time"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/factory"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
)

// init registers the built-in observation sources.
func init() {
	_ = RegisterSource("csv", func(conf map[string]any) (Source, error) {
		var c struct {
			Dir       string `json:"dir"`
			Direction string `json:"direction"`
			Timezone  string `json:"timezone"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		loc := time.UTC
		if c.Timezone != "" {
			var err error
			if loc, err = time.LoadLocation(c.Timezone); err != nil {
				return nil, model.NewConfigError("source.timezone", err.Error())
			}
		}
		return NewCSVSource(c.Dir, c.Direction, loc)
	})

	_ = RegisterSource("ckan", func(conf map[string]any) (Source, error) {
		var c CKANConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCKANSource(c)
	})

	_ = RegisterSource("postgres", func(conf map[string]any) (Source, error) {
		var c PostgresConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPostgresSource(context.Background(), c)
	})

	_ = RegisterSource("memory", func(map[string]any) (Source, error) {
		return Memory{}, nil
	})
}
