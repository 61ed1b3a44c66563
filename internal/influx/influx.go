// Package influx writes decoded battery readings to InfluxDB, one point per
// reading: the measurement is the message type, the battery identity is a
// tag, and the decoded values are the fields.
package influx

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/vboginskey/bmv/internal/config"
	"github.com/vboginskey/bmv/internal/ut1300"
)

type Writer struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func NewWriter(cfg config.Config) *Writer {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &Writer{
		client: client,
		write:  client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
	}
}

func (w *Writer) WriteReading(ctx context.Context, r *ut1300.Reading) error {
	p := influxdb2.NewPoint(
		r.Measurement,
		map[string]string{"device": r.Device},
		r.Fields,
		r.Time,
	)
	if err := w.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx write %s: %w", r.Measurement, err)
	}
	return nil
}

// Ping verifies the server is reachable. Used at startup so a bad URL fails
// loudly instead of on the first reading.
func (w *Writer) Ping(ctx context.Context) error {
	ok, err := w.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influx ping: %w", err)
	}
	if !ok {
		return fmt.Errorf("influx ping: server not ready")
	}
	return nil
}

func (w *Writer) Close() {
	w.client.Close()
}
