package resolve

import "testing"

func TestParseLdconfigCache(t *testing.T) {
	out := "123 libs found in cache `/etc/ld.so.cache'\n" +
		"\tlibmpi.so.40 (libc6,x86-64) => /usr/lib/x86_64-linux-gnu/libmpi.so.40\n" +
		"\tlibc.so.6 (libc6,x86-64) => /lib/x86_64-linux-gnu/libc.so.6\n"

	cache := ParseLdconfigCache(out)
	if len(cache) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(cache), cache)
	}
	rec, ok := cache["libmpi.so.40"]
	if !ok {
		t.Fatalf("missing libmpi.so.40 in %v", cache)
	}
	if rec.Realpath != "/usr/lib/x86_64-linux-gnu/libmpi.so.40" {
		t.Fatalf("unexpected realpath: %q", rec.Realpath)
	}
}

func TestParseLdconfigCacheIgnoresHeader(t *testing.T) {
	cache := ParseLdconfigCache("123 libs found in cache `/etc/ld.so.cache'\n")
	if len(cache) != 0 {
		t.Fatalf("expected no entries, got %v", cache)
	}
}
