package race

import (
	"testing"
)

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry()

	t.Run("code format", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			code, room := reg.Create()
			if len(code) != 6 {
				t.Fatalf("Expected 6-digit code, got %q", code)
			}
			if !ValidRoomCode(code) {
				t.Fatalf("Expected numeric code, got %q", code)
			}
			if room.State != StateWaiting {
				t.Errorf("Expected new room in waiting state, got %q", room.State)
			}
		}
	})

	t.Run("codes unique among live rooms", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, code := range reg.Codes() {
			if seen[code] {
				t.Fatalf("Duplicate live room code %q", code)
			}
			seen[code] = true
		}
	})
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()
	code, created := reg.Create()

	t.Run("existing room", func(t *testing.T) {
		room, ok := reg.Get(code)
		if !ok {
			t.Fatal("Expected room to be found")
		}
		if room != created {
			t.Error("Get returned a different room")
		}
	})

	t.Run("absent room", func(t *testing.T) {
		if _, ok := reg.Get("000000"); ok {
			t.Error("Expected absent code to miss")
		}
	})
}

func TestRegistryDelete(t *testing.T) {
	reg := NewRegistry()
	code, _ := reg.Create()

	reg.Delete(code)
	if _, ok := reg.Get(code); ok {
		t.Error("Expected room gone after delete")
	}
	if reg.Count() != 0 {
		t.Errorf("Expected empty registry, got %d rooms", reg.Count())
	}

	// Deleting an absent code is silent.
	reg.Delete(code)
	reg.Delete("999999")
}

func TestValidRoomCode(t *testing.T) {
	valid := []string{"123456", "000000", "999999"}
	invalid := []string{"", "12345", "1234567", "12345a", "abcdef", " 23456", "12 456"}

	for _, code := range valid {
		if !ValidRoomCode(code) {
			t.Errorf("Expected %q to be valid", code)
		}
	}
	for _, code := range invalid {
		if ValidRoomCode(code) {
			t.Errorf("Expected %q to be invalid", code)
		}
	}
}
