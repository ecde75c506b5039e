package clipboard

import "testing"

func TestMemoryAdapter_WriteTextThenRead(t *testing.T) {
	a := NewMemoryAdapter()
	if err := a.WriteText("hello"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	got, err := a.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Kind != KindText || got.Text != "hello" {
		t.Errorf("Read() = %+v, want Kind=TEXT Text=hello", got)
	}
}

func TestMemoryAdapter_WriteFilesCopiesSlice(t *testing.T) {
	a := NewMemoryAdapter()
	paths := []string{"/tmp/a", "/tmp/b"}
	if err := a.WriteFiles(paths); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	paths[0] = "mutated"

	got, _ := a.Read()
	if got.Files[0] != "/tmp/a" {
		t.Errorf("Read().Files[0] = %q, want unaffected by caller mutation", got.Files[0])
	}
}

func TestMemoryAdapter_SubscribeUnsupported(t *testing.T) {
	a := NewMemoryAdapter()
	if a.Subscribe(func() {}) {
		t.Error("MemoryAdapter.Subscribe should report unsupported")
	}
}

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		KindNone:  "NONE",
		KindText:  "TEXT",
		KindImage: "IMAGE",
		KindFiles: "FILES",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
