//go:build e2e

package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vboginskey/bmv/internal/config"
	"github.com/vboginskey/bmv/internal/influx"
	"github.com/vboginskey/bmv/internal/ut1300"
)

const (
	e2eToken  = "e2e-token"
	e2eOrg    = "home"
	e2eBucket = "batteries"
)

func startInflux(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "admin-password",
			"DOCKER_INFLUXDB_INIT_ORG":         e2eOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      e2eBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": e2eToken,
		},
		WaitingFor: wait.ForListeningPort(nat.Port("8086/tcp")).WithStartupTimeout(60 * time.Second),
	}
	ctr, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start influxdb container: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "8086/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return "http://" + host + ":" + port.Port()
}

func waitReady(t *testing.T, w *influx.Writer, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := w.Ping(ctx)
		cancel()
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("influx not ready after %v: %v", timeout, err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// TestInfluxRoundTrip drives a fragmented notification stream through a real
// session and verifies the decoded reading lands in InfluxDB.
func TestInfluxRoundTrip(t *testing.T) {
	url := startInflux(t)

	cfg := config.Config{
		InfluxURL:    url,
		InfluxToken:  e2eToken,
		InfluxOrg:    e2eOrg,
		InfluxBucket: e2eBucket,
	}
	w := influx.NewWriter(cfg)
	defer w.Close()
	waitReady(t, w, 60*time.Second)

	// 22-byte cell voltage frame delivered as two fragments.
	frame := []byte{
		0xEA, 0xD1, 0x01, 0x12, 0xFF, 0x02,
		0x00, 0x00, 0x00,
		0x0F, 0xA0, 0x0F, 0x9C, 0x0F, 0x88, 0x0F, 0x78,
		0x00, 0x00, 0x00, 0x00,
		0xF5,
	}
	session := ut1300.NewSession("e2e-battery")
	if r, err := session.HandleNotification(frame[:10]); r != nil || err != nil {
		t.Fatalf("first fragment: reading=%v err=%v", r, err)
	}
	reading, err := session.HandleNotification(frame[10:])
	if err != nil {
		t.Fatalf("second fragment: %v", err)
	}
	if reading == nil {
		t.Fatal("no reading after final fragment")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.WriteReading(ctx, reading); err != nil {
		t.Fatalf("WriteReading: %v", err)
	}

	client := influxdb2.NewClient(url, e2eToken)
	defer client.Close()
	query := client.QueryAPI(e2eOrg)

	res, err := query.Query(ctx, `
		from(bucket: "`+e2eBucket+`")
			|> range(start: -1h)
			|> filter(fn: (r) => r._measurement == "cell_voltages")
			|> filter(fn: (r) => r.device == "e2e-battery")`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	got := make(map[string]float64)
	for res.Next() {
		rec := res.Record()
		if v, ok := rec.Value().(float64); ok {
			got[rec.Field()] = v
		}
	}
	if res.Err() != nil {
		t.Fatalf("query result: %v", res.Err())
	}

	want := map[string]float64{
		"cell1_voltage": 4.000,
		"cell2_voltage": 3.996,
		"cell3_voltage": 3.976,
		"cell4_voltage": 3.960,
	}
	for field, v := range want {
		if got[field] != v {
			t.Errorf("%s = %v, want %v", field, got[field], v)
		}
	}
}
