package analytics

import (
	"github.com/hashicorp/go-multierror"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/kafka"
)

// FromConfig builds a collector that publishes to the configured topics when
// Kafka is enabled and only aggregates otherwise. Start it before use; the
// returned function drains it and closes the producers.
func FromConfig(cfg config.KafkaConfig) (*Collector, func() error) {
	if !cfg.Enabled {
		c := NewCollector(nil, nil, nil, 0)
		return c, func() error { c.Close(); return nil }
	}
	searchProducer := kafka.NewProducer(cfg, cfg.Topics.SearchEvents)
	indexProducer := kafka.NewProducer(cfg, cfg.Topics.IndexEvents)
	c := NewCollector(searchProducer, indexProducer, nil, 0)
	return c, func() error {
		c.Close()
		var result *multierror.Error
		if err := searchProducer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := indexProducer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		return result.ErrorOrNil()
	}
}
