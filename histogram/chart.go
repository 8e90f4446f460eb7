// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package histogram

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderBarChart writes an HTML bar chart of per-bucket record counts to w,
// one bar per non-empty bucket. This is an optional diagnostic export, not
// part of the hot recording or reporting path.
func (h *Histogram) RenderBarChart(w io.Writer, title string) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))

	n, length := numBuckets(h.s), bucketLength(h.s)
	var labels []string
	var data []opts.BarData
	for b := 0; b < n; b++ {
		var sum uint64
		for pos := uint64(0); pos < length; pos++ {
			sum += h.store.Count(b, pos)
		}
		if sum == 0 {
			continue
		}
		labels = append(labels, fmt.Sprintf("bucket %d", b))
		data = append(data, opts.BarData{Value: sum})
	}

	bar.SetXAxis(labels).AddSeries("count", data)
	return bar.Render(w)
}
