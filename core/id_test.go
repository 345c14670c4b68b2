package core

import (
	"encoding/json"
	"testing"
)

func TestOptionalID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    OptionalID
		wantErr bool
	}{
		{name: "number", data: `{"courseId": 5}`, want: NewOptionalID(5)},
		{name: "numeric string", data: `{"courseId": "12"}`, want: NewOptionalID(12)},
		{name: "padded numeric string", data: `{"courseId": " 3 "}`, want: NewOptionalID(3)},
		{name: "null", data: `{"courseId": null}`},
		{name: "empty string", data: `{"courseId": ""}`},
		{name: "missing", data: `{}`},
		{name: "word", data: `{"courseId": "lol"}`, wantErr: true},
		{name: "float", data: `{"courseId": 1.5}`, wantErr: true},
		{name: "bool", data: `{"courseId": true}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				CourseID OptionalID `json:"courseId"`
			}
			err := json.Unmarshal([]byte(tt.data), &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("json.Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.CourseID != tt.want {
				t.Errorf("json.Unmarshal() = %+v, want %+v", got.CourseID, tt.want)
			}
		})
	}
}

func TestOptionalID_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		id   OptionalID
		want string
	}{
		{name: "set", id: NewOptionalID(7), want: `{"courseId":7}`},
		{name: "unset", id: OptionalID{}, want: `{"courseId":null}`},
		{name: "zero but valid", id: NewOptionalID(0), want: `{"courseId":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(struct {
				CourseID OptionalID `json:"courseId"`
			}{tt.id})
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("json.Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}
