package server

import (
	"github.com/tidwall/gjson"

	"codeberg.org/mutker/metricshub/internal/store"
)

// payloadKind tags the shape of an ingestion body. The single-vs-batch
// decision is made here, once, at the parse boundary.
type payloadKind int

const (
	payloadInvalid payloadKind = iota
	payloadObject
	payloadArray
)

func parsePayload(body []byte) (gjson.Result, payloadKind) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, payloadInvalid
	}

	parsed := gjson.ParseBytes(body)
	switch {
	case parsed.IsArray():
		return parsed, payloadArray
	case parsed.IsObject():
		return parsed, payloadObject
	default:
		return gjson.Result{}, payloadInvalid
	}
}

// systemRecordFromJSON maps a resource payload leniently: absent fields
// become NULL columns rather than rejections
func systemRecordFromJSON(obj gjson.Result) *store.SystemRecord {
	return &store.SystemRecord{
		GroupKey:        obj.Get("group_key").String(),
		CPUUsage:        floatField(obj, "cpu_usage"),
		MemoryUsage:     floatField(obj, "memory_usage"),
		CPUTemp:         floatField(obj, "cpu_temp"),
		ClientTimestamp: stringField(obj, "timestamp"),
	}
}

func stockRecordFromJSON(obj gjson.Result) *store.StockRecord {
	return &store.StockRecord{
		Symbol:          obj.Get("symbol").String(),
		Price:           floatField(obj, "price"),
		ChangePercent:   floatField(obj, "change_percent"),
		ClientTimestamp: stringField(obj, "timestamp"),
	}
}

func floatField(obj gjson.Result, key string) *float64 {
	v := obj.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	f := v.Float()
	return &f
}

func stringField(obj gjson.Result, key string) *string {
	v := obj.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}
