package codec

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type carForm struct {
	Name   string    `form:"Name" json:"name"`
	Make   string    `form:"Make" json:"make"`
	Wheels int       `form:"Wheels" json:"wheels"`
	Built  time.Time `form:"Built" json:"built"`
}

// TestFormCodecDecode tests binding a posted urlencoded form to a struct,
// including the time.Time field.
func TestFormCodecDecode(t *testing.T) {
	c := NewFormCodec[carForm, carForm]()

	body := "Name=DeLorean&Make=DMC&Wheels=4&Built=1981-01-21"
	req := httptest.NewRequest("POST", "/car", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	car, err := c.Decode(req)
	if err != nil {
		t.Fatalf("Failed to decode form: %v", err)
	}
	if car.Name != "DeLorean" || car.Make != "DMC" || car.Wheels != 4 {
		t.Errorf("Unexpected car: %+v", car)
	}
	want := time.Date(1981, 1, 21, 0, 0, 0, 0, time.UTC)
	if !car.Built.Equal(want) {
		t.Errorf("Expected Built %v, got %v", want, car.Built)
	}
}

// TestFormCodecDecodeBytes tests binding from a raw urlencoded payload.
func TestFormCodecDecodeBytes(t *testing.T) {
	c := NewFormCodec[carForm, carForm]()

	car, err := c.DecodeBytes([]byte("Name=Model+T&Make=Ford&Wheels=4&Built=1908-10-01T00:00:00"))
	if err != nil {
		t.Fatalf("Failed to decode form bytes: %v", err)
	}
	if car.Name != "Model T" || car.Make != "Ford" {
		t.Errorf("Unexpected car: %+v", car)
	}
	if car.Built.Year() != 1908 {
		t.Errorf("Expected Built year 1908, got %d", car.Built.Year())
	}
}

// TestFormCodecCaseInsensitive tests the lenient field-name fallback.
func TestFormCodecCaseInsensitive(t *testing.T) {
	c := NewFormCodec[carForm, carForm]()

	car, err := c.DecodeBytes([]byte("name=Beetle&make=VW&wheels=4"))
	if err != nil {
		t.Fatalf("Failed to decode form bytes: %v", err)
	}
	if car.Name != "Beetle" || car.Make != "VW" || car.Wheels != 4 {
		t.Errorf("Unexpected car: %+v", car)
	}
}

// TestFormCodecMissingFieldsKeepZero tests that absent fields stay zero.
func TestFormCodecMissingFieldsKeepZero(t *testing.T) {
	c := NewFormCodec[carForm, carForm]()

	car, err := c.DecodeBytes([]byte("Name=Solo"))
	if err != nil {
		t.Fatalf("Failed to decode form bytes: %v", err)
	}
	if car.Name != "Solo" {
		t.Errorf("Expected Name %q, got %q", "Solo", car.Name)
	}
	if car.Wheels != 0 || !car.Built.IsZero() {
		t.Errorf("Expected zero values for missing fields, got %+v", car)
	}
}

// TestFormCodecBadValue tests that an unparseable value reports an error.
func TestFormCodecBadValue(t *testing.T) {
	c := NewFormCodec[carForm, carForm]()
	if _, err := c.DecodeBytes([]byte("Wheels=lots")); err == nil {
		t.Errorf("Expected error for non-integer Wheels")
	}
	if _, err := c.DecodeBytes([]byte("Built=yesterday")); err == nil {
		t.Errorf("Expected error for unrecognized time format")
	}
}

// TestFormCodecEncode tests the JSON response side.
func TestFormCodecEncode(t *testing.T) {
	c := NewFormCodec[carForm, carForm]()
	rec := httptest.NewRecorder()

	car := carForm{Name: "DeLorean", Make: "DMC", Wheels: 4}
	if err := c.Encode(rec, car); err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Expected Content-Type %q, got %q", "application/json", got)
	}
	if !strings.Contains(rec.Body.String(), `"name":"DeLorean"`) {
		t.Errorf("Expected JSON body with the car name, got %q", rec.Body.String())
	}
}

// TestJSONCodec tests the JSON request/response round trip.
func TestJSONCodec(t *testing.T) {
	c := NewJSONCodec[carForm, carForm]()

	req := httptest.NewRequest("POST", "/car", strings.NewReader(`{"name":"DeLorean","wheels":4}`))
	car, err := c.Decode(req)
	if err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if car.Name != "DeLorean" || car.Wheels != 4 {
		t.Errorf("Unexpected car: %+v", car)
	}

	if _, err := c.DecodeBytes([]byte("{not json")); err == nil {
		t.Errorf("Expected error for malformed JSON")
	}
}

// TestProtoCodec tests protobuf decoding and encoding using a well-known
// wrapper message.
func TestProtoCodec(t *testing.T) {
	c := NewProtoCodec[*wrapperspb.StringValue, *wrapperspb.StringValue](func() *wrapperspb.StringValue {
		return &wrapperspb.StringValue{}
	})

	payload, err := proto.Marshal(wrapperspb.String("hello"))
	if err != nil {
		t.Fatalf("Failed to marshal test message: %v", err)
	}

	msg, err := c.DecodeBytes(payload)
	if err != nil {
		t.Fatalf("Failed to decode protobuf: %v", err)
	}
	if msg.GetValue() != "hello" {
		t.Errorf("Expected value %q, got %q", "hello", msg.GetValue())
	}

	rec := httptest.NewRecorder()
	if err := c.Encode(rec, wrapperspb.String("world")); err != nil {
		t.Fatalf("Failed to encode protobuf: %v", err)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/x-protobuf" {
		t.Errorf("Expected Content-Type %q, got %q", "application/x-protobuf", got)
	}

	decoded := &wrapperspb.StringValue{}
	if err := proto.Unmarshal(rec.Body.Bytes(), decoded); err != nil {
		t.Fatalf("Failed to unmarshal encoded body: %v", err)
	}
	if decoded.GetValue() != "world" {
		t.Errorf("Expected value %q, got %q", "world", decoded.GetValue())
	}
}
