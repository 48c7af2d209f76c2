package loader

import (
	"encoding/csv"
	"io"
	"log"
	"strconv"
	"time"

	"trading-core/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// LoadCSV reads an ordered bar sequence from r. The expected header is
// timestamp,open,high,low,close,volume; timestamp is either a decimal
// integer (epoch seconds) or YYYY-MM-DD HH:MM:SS parsed as local civil
// time. Malformed rows are skipped and logged; empty or header-only input
// yields an empty slice, not an error.
func LoadCSV(r io.Reader) ([]model.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = header // the reference format's column order is fixed; names are documentation only

	var bars []model.Bar
	lineNo := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			log.Printf("loader: skipping malformed CSV row %d: %v", lineNo, err)
			continue
		}
		if len(record) < 6 {
			log.Printf("loader: skipping row %d: expected 6 fields, got %d", lineNo, len(record))
			continue
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			log.Printf("loader: skipping row %d: bad timestamp %q: %v", lineNo, record[0], err)
			continue
		}
		open, errO := strconv.ParseFloat(record[1], 64)
		high, errH := strconv.ParseFloat(record[2], 64)
		low, errL := strconv.ParseFloat(record[3], 64)
		close_, errC := strconv.ParseFloat(record[4], 64)
		volume, errV := strconv.ParseFloat(record[5], 64)
		if errO != nil || errH != nil || errL != nil || errC != nil || errV != nil {
			log.Printf("loader: skipping row %d: non-numeric OHLCV field", lineNo)
			continue
		}

		bar := model.Bar{Timestamp: ts, Open: open, High: high, Low: low, Close: close_, Volume: volume}
		if err := bar.Validate(); err != nil {
			log.Printf("loader: skipping row %d: %v", lineNo, err)
			continue
		}
		if len(bars) > 0 && bar.Timestamp <= bars[len(bars)-1].Timestamp {
			log.Printf("loader: row %d: non-monotone timestamp %d, keeping bar but flow may be out of order", lineNo, bar.Timestamp)
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

func parseTimestamp(raw string) (int64, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return secs, nil
	}
	t, err := time.ParseInLocation(timeLayout, raw, time.Local)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
