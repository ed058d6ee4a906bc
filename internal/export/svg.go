package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"upbit-backtester/internal/model"
)

type point struct{ X, Y float64 }

type marker struct {
	X, Y float64
	Kind string
}

// Renderer writes backtest result charts as standalone SVG files: the
// close-price series with buy/sell markers on top and the equity curve in a
// smaller panel below.
type Renderer struct {
	Dir     string
	BaseURL string
	Width   int
	Height  int
}

func NewRenderer(dir, baseURL string) *Renderer {
	return &Renderer{Dir: dir, BaseURL: baseURL, Width: 900, Height: 300}
}

func (r *Renderer) RenderBacktest(report *model.BacktestReport, candles []model.Candle, equity []model.EquityPoint, market, strategyType, interval string) (string, string, error) {
	if len(candles) == 0 {
		return "", "", fmt.Errorf("no candles to render")
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", "", err
	}

	prices := make([]point, len(candles))
	for i, c := range candles {
		prices[i] = point{X: float64(c.Timestamp.Unix()), Y: c.Close}
	}
	var marks []marker
	for _, t := range report.TradeHistory {
		kind := "buy"
		if t.Action == model.ActionSell {
			kind = "sell"
		}
		marks = append(marks, marker{X: float64(t.Time.Unix()), Y: t.Price, Kind: kind})
	}
	var equityLine []point
	for _, p := range equity {
		equityLine = append(equityLine, point{X: float64(p.Time.Unix()), Y: p.Value})
	}

	priceH := r.Height
	equityH := 0
	if len(equityLine) > 1 {
		equityH = r.Height / 2
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d' viewBox='0 0 %d %d'>",
		r.Width, priceH+equityH, r.Width, priceH+equityH)
	b.WriteString("<rect width='100%' height='100%' fill='#0b0f17'/>")
	title := fmt.Sprintf("%s %s (%s)", market, strategyType, interval)
	panel(&b, r.Width, priceH, 0, prices, marks, title)
	if equityH > 0 {
		panel(&b, r.Width, equityH, priceH, equityLine, nil, "portfolio value")
	}
	b.WriteString("</svg>")

	name := fmt.Sprintf("backtest_%s_%s_%s_%d.svg",
		strings.ReplaceAll(market, "-", "_"), strategyType, interval, time.Now().Unix())
	path := filepath.Join(r.Dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		return "", "", err
	}

	ref := path
	if r.BaseURL != "" {
		ref = strings.TrimRight(r.BaseURL, "/") + "/" + name
	}
	return name, ref, nil
}

// panel draws one line-with-markers pane at vertical offset top.
func panel(b *bytes.Buffer, w, h, top int, line []point, marks []marker, title string) {
	minx, maxx := line[0].X, line[len(line)-1].X
	miny, maxy := line[0].Y, line[0].Y
	for _, p := range line {
		if p.Y < miny {
			miny = p.Y
		}
		if p.Y > maxy {
			maxy = p.Y
		}
	}
	sx := float64(w-80) / (maxx - minx + 1e-9)
	sy := float64(h-60) / (maxy - miny + 1e-9)

	fmt.Fprintf(b, "<g transform='translate(40,%d)'>", top+20)
	fmt.Fprintf(b, "<line x1='0' y1='0' x2='0' y2='%d' stroke='#1f2837' />", h-60)
	fmt.Fprintf(b, "<line x1='0' y1='%d' x2='%d' y2='%d' stroke='#1f2837' />", h-60, w-80, h-60)
	b.WriteString("<polyline fill='none' stroke='#59a6ff' stroke-width='1.5' points='")
	for i, p := range line {
		x := (p.X - minx) * sx
		y := float64(h-60) - (p.Y-miny)*sy
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%.2f,%.2f", x, y)
	}
	b.WriteString("'/>")
	for _, m := range marks {
		x := (m.X - minx) * sx
		y := float64(h-60) - (m.Y-miny)*sy
		color := "#8bff9b"
		if m.Kind == "sell" {
			color = "#ff7a7a"
		}
		fmt.Fprintf(b, "<circle cx='%.2f' cy='%.2f' r='3' fill='%s' />", x, y, color)
	}
	b.WriteString("</g>")
	fmt.Fprintf(b, "<text x='16' y='%d' fill='#e6edf3' font-family='Inter' font-size='14'>%s</text>", top+18, title)
}
