package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/xhad/shopsage/pkg/processor"
)

// LoadFiles reads every file matching pattern (doublestar syntax, e.g.
// "exports/**/*.json"). A file holds either one order or an array of
// orders in the sample schema. Files are read in lexical path order.
func LoadFiles(pattern string) ([]processor.RawOrder, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	sort.Strings(paths)

	var orders []processor.RawOrder
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		batch, err := decodeOrders(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		orders = append(orders, batch...)
	}
	return orders, nil
}

func decodeOrders(data []byte) ([]processor.RawOrder, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var samples []processor.SampleOrder
	if data[0] == '[' {
		if err := json.Unmarshal(data, &samples); err != nil {
			return nil, err
		}
	} else {
		var one processor.SampleOrder
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		samples = append(samples, one)
	}

	orders := make([]processor.RawOrder, len(samples))
	for i, s := range samples {
		orders[i] = s
	}
	return orders, nil
}
