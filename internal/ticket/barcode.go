package ticket

import (
	"fmt"

	"github.com/boombuler/barcode/code128"
)

// barRun is a stretch of adjacent dark modules.
type barRun struct {
	Start, Width int
}

// code128Bars encodes payload and returns the symbol width in modules
// with its dark runs from left to right.
func code128Bars(payload string) (int, []barRun, error) {
	bc, err := code128.Encode(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode barcode %q: %w", payload, err)
	}
	bounds := bc.Bounds()
	modules := bounds.Dx()

	var runs []barRun
	start := -1
	for x := 0; x < modules; x++ {
		r, g, b, _ := bc.At(bounds.Min.X+x, bounds.Min.Y).RGBA()
		dark := r == 0 && g == 0 && b == 0
		switch {
		case dark && start < 0:
			start = x
		case !dark && start >= 0:
			runs = append(runs, barRun{Start: start, Width: x - start})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, barRun{Start: start, Width: modules - start})
	}
	if modules == 0 || len(runs) == 0 {
		return 0, nil, fmt.Errorf("encode barcode %q: empty symbol", payload)
	}
	return modules, runs, nil
}
