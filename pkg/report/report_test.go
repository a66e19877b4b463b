package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uhyunpark/flowgen/pkg/client"
)

type scriptedTop struct {
	tops []client.Top
	errs []error
	i    int
}

func (s *scriptedTop) TopOfBook(context.Context) (client.Top, error) {
	defer func() { s.i++ }()
	return s.tops[s.i], s.errs[s.i]
}

type memorySink struct {
	got []Sample
	err error
}

func (m *memorySink) Publish(_ string, s Sample) error {
	m.got = append(m.got, s)
	return m.err
}

func TestRecorder_DropsIncompleteTops(t *testing.T) {
	src := &scriptedTop{
		tops: []client.Top{{Buy: 29950, Sell: 30050}, {}, {}, {Buy: 30100, Sell: 30000}},
		errs: []error{nil, client.ErrIncompleteTop, errors.New("bad json"), nil},
	}
	sink := &memorySink{}
	rec := NewRecorder(src, "run-1", nil, sink)

	for _, tick := range []int{0, 100, 200, 300} {
		rec.Observe(context.Background(), tick)
	}

	want := []Sample{{Tick: 0, BestBuy: 29950, BestSell: 30050}, {Tick: 300, BestBuy: 30100, BestSell: 30000}}
	got := rec.Samples()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("samples = %+v, want %+v", got, want)
	}
	if len(sink.got) != 2 {
		t.Errorf("sink saw %d samples", len(sink.got))
	}
	if got[0].Spread() != -100 || got[1].Spread() != 100 {
		t.Errorf("spreads = %v, %v", got[0].Spread(), got[1].Spread())
	}
}

func TestRecorder_SinkFailureKeepsSample(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := NewRecorder(nil, "run-2", zap.New(core).Sugar(), &memorySink{err: errors.New("disk full")})

	rec.Record(Sample{Tick: 5, BestBuy: 1, BestSell: 2})
	if len(rec.Samples()) != 1 {
		t.Fatal("sample lost after sink failure")
	}
	if logs.FilterMessage("sample_sink_failed").Len() != 1 {
		t.Error("sink failure not logged")
	}
}

func TestTable(t *testing.T) {
	out := Table([]Sample{{Tick: 0, BestBuy: 29950, BestSell: 30050}, {Tick: 100, BestBuy: 30210.5, BestSell: 30199.25}})
	for _, want := range []string{"ORDER #", "SPREAD", "29950.00", "30050.00", "-100.00", "30210.50", "11.25"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, nil)
	if !strings.Contains(buf.String(), "No top-of-book samples") {
		t.Errorf("summary = %q", buf.String())
	}
}

func TestRenderChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	samples := []Sample{
		{Tick: 0, BestBuy: 29950, BestSell: 30050},
		{Tick: 100, BestBuy: 30400, BestSell: 30480},
		{Tick: 200, BestBuy: 31010, BestSell: 30990},
	}
	if err := RenderChart(path, ChartTitle("BTC", "USD"), "USD", samples); err != nil {
		t.Fatalf("RenderChart: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("chart is not a PNG")
	}

	if _, err := NewChart("t", "USD", nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("empty chart err = %v", err)
	}
}

func TestPresenter_Finish(t *testing.T) {
	dir := t.TempDir()
	samples := []Sample{{Tick: 0, BestBuy: 99, BestSell: 101}}

	var out bytes.Buffer
	p := Presenter{Out: &out, ChartPath: filepath.Join(dir, "evolution.png"), Symbol: "BTC", QuoteAsset: "USD"}
	if got := p.Finish(samples); got != p.ChartPath {
		t.Errorf("Finish = %q", got)
	}
	if !strings.Contains(out.String(), "Price evolution (1 samples)") {
		t.Errorf("summary = %q", out.String())
	}

	core, logs := observer.New(zap.ErrorLevel)
	p.ChartPath = filepath.Join(dir, "missing", "evolution.png")
	p.Logger = zap.New(core).Sugar()
	if got := p.Finish(samples); got != "" {
		t.Errorf("Finish into missing dir = %q", got)
	}
	if logs.FilterMessage("chart_failed").Len() != 1 {
		t.Error("chart failure not logged")
	}

	out.Reset()
	if got := p.Finish(nil); got != "" || !strings.Contains(out.String(), "No top-of-book samples") {
		t.Errorf("Finish(nil) = %q, %q", got, out.String())
	}
}
