package publish

import (
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/factory"
)

// init registers the built-in publishers.
func init() {
	_ = RegisterPublisher("nop", func(map[string]any) (Publisher, error) {
		return Nop{}, nil
	})

	_ = RegisterPublisher("mqtt", func(conf map[string]any) (Publisher, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMQTTPublisher(c)
	})

	_ = RegisterPublisher("redis", func(conf map[string]any) (Publisher, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRedisPublisher(c)
	})
}
