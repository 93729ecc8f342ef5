package store

import (
	jsoniter "github.com/json-iterator/go"

	"example.com/golocalevents/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encode(events []domain.Event) ([]byte, error) {
	if events == nil {
		events = []domain.Event{}
	}
	return json.Marshal(events)
}

func decode(data []byte) ([]domain.Event, error) {
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
