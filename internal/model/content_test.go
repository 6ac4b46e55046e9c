package model

import (
	"testing"
	"time"
)

func TestContent_CanonicalString_StableUnderFieldOrder(t *testing.T) {
	a := Content{"a": String("x"), "b": Number(1), "c": Bool(true)}
	b := Content{"c": Bool(true), "a": String("x"), "b": Number(1)}

	if a.CanonicalString() != b.CanonicalString() {
		t.Fatalf("canonical string differs under field-order permutation:\n%s\n%s", a.CanonicalString(), b.CanonicalString())
	}
}

func TestContent_CanonicalString_NestedMap(t *testing.T) {
	a := Content{"outer": Map(Content{"z": String("1"), "a": String("2")})}
	b := Content{"outer": Map(Content{"a": String("2"), "z": String("1")})}

	if a.CanonicalString() != b.CanonicalString() {
		t.Fatalf("nested map canonical string not stable under key order")
	}
}

func TestContent_CanonicalString_List(t *testing.T) {
	c := Content{"items": List(String("a"), Number(2), Bool(false))}
	want := `{"items":["a",2,false]}`
	if got := c.CanonicalString(); got != want {
		t.Fatalf("CanonicalString() = %s, want %s", got, want)
	}
}

func TestContentValue_JSONRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	orig := Content{
		"s": String("hello"),
		"n": Number(3.5),
		"b": Bool(true),
		"t": Timestamp(ts),
		"l": List(String("a"), Number(1)),
		"m": Map(Content{"k": String("v")}),
		"z": Null,
	}

	v := orig["t"]
	raw, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON timestamp: %v", err)
	}
	var parsed ContentValue
	if err := parsed.UnmarshalJSON(raw); err != nil {
		t.Fatalf("UnmarshalJSON timestamp: %v", err)
	}
	if parsed.Kind != KindTimestamp || !parsed.Time.Equal(ts) {
		t.Fatalf("timestamp did not round-trip: got %+v", parsed)
	}
}

func TestContentValue_UnmarshalJSON_Null(t *testing.T) {
	var v ContentValue
	if err := v.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("UnmarshalJSON(null): %v", err)
	}
	if v.Kind != KindNull {
		t.Errorf("expected KindNull, got %v", v.Kind)
	}
}
