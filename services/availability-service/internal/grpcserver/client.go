package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Slot is one entry of a GetSlots response.
type Slot struct {
	Label     string
	StartTime string
	EndTime   string
}

// Client calls the availability service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Slots(ctx context.Context, profileID, date, timezone string, duration int) ([]Slot, error) {
	req, err := structpb.NewStruct(map[string]any{
		"profile_id": profileID,
		"date":       date,
		"timezone":   timezone,
		"duration":   duration,
	})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetSlots", req, out); err != nil {
		return nil, err
	}

	var slots []Slot
	for _, v := range out.GetFields()["slots"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		slots = append(slots, Slot{
			Label:     f["label"].GetStringValue(),
			StartTime: f["start_time"].GetStringValue(),
			EndTime:   f["end_time"].GetStringValue(),
		})
	}
	return slots, nil
}

func (c *Client) Month(ctx context.Context, profileID string, year int, month time.Month, timezone string, duration int) (map[string]bool, error) {
	req, err := structpb.NewStruct(map[string]any{
		"profile_id": profileID,
		"year":       year,
		"month":      int(month),
		"timezone":   timezone,
		"duration":   duration,
	})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetMonthAvailability", req, out); err != nil {
		return nil, err
	}

	days := make(map[string]bool)
	for d, v := range out.GetFields()["days"].GetStructValue().GetFields() {
		days[d] = v.GetBoolValue()
	}
	return days, nil
}
