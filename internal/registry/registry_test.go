package registry

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/goplus/depbuild/internal/library"
)

func lib(name string, deps ...string) *library.Library {
	return &library.Library{Name: name, DependsOn: deps, BuildSystem: library.CMake}
}

func names(libs []*library.Library) []string {
	out := make([]string, 0, len(libs))
	for _, l := range libs {
		out = append(out, l.Name)
	}
	return out
}

func assertTopological(t *testing.T, r *Registry, order []*library.Library, platform string) {
	t.Helper()
	pos := make(map[string]int, len(order))
	for i, l := range order {
		if _, dup := pos[l.Name]; dup {
			t.Fatalf("%s appears twice in %v", l.Name, names(order))
		}
		pos[l.Name] = i
	}
	for _, l := range order {
		for _, dep := range l.DependsOn {
			d, ok := r.Get(dep)
			if !ok || !d.EnabledFor(platform) {
				continue
			}
			if pos[dep] >= pos[l.Name] {
				t.Fatalf("%s must come before %s in %v", dep, l.Name, names(order))
			}
		}
	}
}

func TestBuildOrderTopological(t *testing.T) {
	r := New([]*library.Library{
		lib("ffmpeg", "x264", "opus", "zlib"),
		lib("x264"),
		lib("opus"),
		lib("png", "zlib"),
		lib("zlib"),
		lib("freetype", "png", "zlib"),
	}, nil)

	order, err := r.BuildOrder("linux")
	if err != nil {
		t.Fatalf("BuildOrder() error = %v", err)
	}
	if len(order) != r.Len() {
		t.Fatalf("got %d libraries, want %d", len(order), r.Len())
	}
	assertTopological(t, r, order, "linux")

	again, err := r.BuildOrder("linux")
	if err != nil {
		t.Fatalf("BuildOrder() error = %v", err)
	}
	if !slices.Equal(names(order), names(again)) {
		t.Fatalf("order is not deterministic: %v vs %v", names(order), names(again))
	}
}

func TestBuildOrderPreferred(t *testing.T) {
	libs := []*library.Library{lib("a"), lib("b"), lib("c"), lib("d", "c")}

	t.Run("NoPreference", func(t *testing.T) {
		order, err := New(libs, nil).BuildOrder("linux")
		if err != nil {
			t.Fatal(err)
		}
		if got, want := names(order), []string{"a", "b", "c", "d"}; !slices.Equal(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("Preferred", func(t *testing.T) {
		order, err := New(libs, []string{"d", "b", "missing"}).BuildOrder("linux")
		if err != nil {
			t.Fatal(err)
		}
		if got, want := names(order), []string{"c", "d", "b", "a"}; !slices.Equal(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})
}

func TestBuildOrderCycle(t *testing.T) {
	r := New([]*library.Library{lib("a", "b"), lib("b", "c"), lib("c", "a"), lib("z")}, nil)

	_, err := r.BuildOrder("linux")
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("BuildOrder() error = %v, want %v", err, ErrCircularDependency)
	}
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("error %T is not a *CycleError", err)
	}
	if got, want := cycle.Path, []string{"a", "b", "c", "a"}; !slices.Equal(got, want) {
		t.Fatalf("cycle path = %v, want %v", got, want)
	}
	if got, want := err.Error(), "circular dependency detected: a -> b -> c -> a"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}

	if _, err := r.WithDependencies("z", "linux"); !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("WithDependencies() error = %v, want cycle", err)
	}
}

func TestBuildOrderDisabledCycleMember(t *testing.T) {
	b := lib("b", "a")
	b.DisabledPlatforms = []string{"linux"}
	r := New([]*library.Library{lib("a", "b"), b}, nil)

	order, err := r.BuildOrder("linux")
	if err != nil {
		t.Fatalf("BuildOrder() error = %v", err)
	}
	if got := names(order); !slices.Equal(got, []string{"a"}) {
		t.Fatalf("got %v, want [a]", got)
	}
	if _, err := r.BuildOrder("macos"); !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("BuildOrder(macos) error = %v, want cycle", err)
	}
}

func TestDisabledExcluded(t *testing.T) {
	x264 := lib("x264")
	x264.DisabledPlatforms = []string{"windows"}
	r := New([]*library.Library{
		lib("ffmpeg", "x264", "zlib", "unknown"),
		x264,
		lib("zlib"),
	}, nil)

	order, err := r.BuildOrder("windows")
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(names(order), "x264") {
		t.Fatalf("disabled library in order: %v", names(order))
	}

	closure, err := r.WithDependencies("ffmpeg", "windows")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := names(closure), []string{"zlib", "ffmpeg"}; !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	closure, err = r.WithDependencies("x264", "windows")
	if err != nil || len(closure) != 0 {
		t.Fatalf("WithDependencies(disabled) = %v, %v, want empty", names(closure), err)
	}

	if got, want := r.MissingDependencies("ffmpeg", "windows"), []string{"x264", "unknown"}; !slices.Equal(got, want) {
		t.Fatalf("MissingDependencies() = %v, want %v", got, want)
	}
	if got := r.MissingDependencies("ffmpeg", "linux"); !slices.Equal(got, []string{"unknown"}) {
		t.Fatalf("MissingDependencies(linux) = %v", got)
	}
}

func TestWithDependencies(t *testing.T) {
	r := New([]*library.Library{
		lib("app", "png", "ssl"),
		lib("png", "zlib"),
		lib("ssl", "zlib"),
		lib("zlib"),
		lib("unrelated", "zlib"),
	}, nil)

	t.Run("Closure", func(t *testing.T) {
		got, err := r.WithDependencies("app", "linux")
		if err != nil {
			t.Fatal(err)
		}
		set := names(got)
		slices.Sort(set)
		if want := []string{"app", "png", "ssl", "zlib"}; !slices.Equal(set, want) {
			t.Fatalf("got %v, want %v", set, want)
		}
		assertTopological(t, r, got, "linux")
		full, _ := r.BuildOrder("linux")
		filtered := slices.DeleteFunc(names(full), func(n string) bool { return n == "unrelated" })
		if !slices.Equal(names(got), filtered) {
			t.Fatalf("closure %v is not consistent with build order %v", names(got), names(full))
		}
	})

	t.Run("Leaf", func(t *testing.T) {
		got, err := r.WithDependencies("zlib", "linux")
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(names(got), []string{"zlib"}) {
			t.Fatalf("got %v, want [zlib]", names(got))
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		got, err := r.WithDependencies("nope", "linux")
		if err != nil || len(got) != 0 {
			t.Fatalf("got %v, %v, want empty", names(got), err)
		}
	})
}

func TestGetAll(t *testing.T) {
	r := New([]*library.Library{lib("b"), lib("a"), lib("a", "b")}, nil)
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	a, ok := r.Get("a")
	if !ok || !slices.Equal(a.DependsOn, []string{"b"}) {
		t.Fatalf("Get(a) = %+v, %v, want the last descriptor", a, ok)
	}
	if _, ok := r.Get("c"); ok {
		t.Fatal("Get(c) found a library")
	}
	if got := names(r.All()); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("All() = %v", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"zlib.yaml":         "name: zlib\n",
		"png.yml":           "name: png\ndepends_on: [zlib]\n",
		"opus.toml":         "name = \"opus\"\nbuild_system = \"meson\"\n",
		"_build_order.yaml": "order: [opus, zlib]\n",
		"_private.yaml":     "name: hidden\n",
		"notes.txt":         "name: nope\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := names(r.All()); !slices.Equal(got, []string{"opus", "png", "zlib"}) {
		t.Fatalf("All() = %v", got)
	}
	order, err := r.BuildOrder("linux")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := names(order), []string{"opus", "zlib", "png"}; !slices.Equal(got, want) {
		t.Fatalf("BuildOrder() = %v, want %v", got, want)
	}
}

func TestLoadMissingDir(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestLoadInvalidDescriptor(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: a\ndepends_on: [a]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); !errors.Is(err, library.ErrInvalidDescriptor) {
		t.Fatalf("Load() error = %v, want %v", err, library.ErrInvalidDescriptor)
	}
}
