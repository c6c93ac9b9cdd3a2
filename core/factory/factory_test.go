package factory

import "testing"

type widget struct {
	Size int
}

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry[*widget]()
	err := r.Register("basic", func(conf map[string]any) (*widget, error) {
		var c struct {
			Size int `json:"size"`
		}
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &widget{Size: c.Size}, nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	w, err := r.Create(ModuleConfig{Type: "basic", Conf: map[string]any{"size": 7}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Size != 7 {
		t.Fatalf("decoded size %d, want 7", w.Size)
	}
}

func TestRegistryRejectsDuplicatesAndUnknown(t *testing.T) {
	r := NewRegistry[*widget]()
	f := func(map[string]any) (*widget, error) { return &widget{}, nil }
	if err := r.Register("basic", f); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("basic", f); err == nil {
		t.Fatalf("duplicate registration must fail")
	}
	if err := r.Register("nil", nil); err == nil {
		t.Fatalf("nil factory must fail")
	}
	if _, err := r.Create(ModuleConfig{Type: "missing"}); err == nil {
		t.Fatalf("unknown type must fail")
	}
	if got := r.Types(); len(got) != 1 || got[0] != "basic" {
		t.Fatalf("types: %v", got)
	}
}
