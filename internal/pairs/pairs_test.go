package pairs

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"keycrack/internal/cipher"
)

func TestParse(t *testing.T) {
	in := "plaintext,ciphertext\n" +
		"0x00DEADBEEF,0xA85A692205\n" +
		"\n" +
		"0x0123456789,0x605F76F4F2,extra\n"
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Pair{
		{0x00DEADBEEF, 0xA85A692205},
		{0x0123456789, 0x605F76F4F2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseHeaderOnly(t *testing.T) {
	got, err := Parse(strings.NewReader("0x00DEADBEEF,0xA85A692205\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("first line must be treated as header, got %v", got)
	}
	if err := Validate(got); !errors.Is(err, ErrNoPairs) {
		t.Fatalf("Validate(empty) = %v, want ErrNoPairs", err)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"one_column", "h\n0x0102030405\n", "line 2"},
		{"bad_plaintext", "h\n0x00DEADBEEF,0xA85A692205\n0xQQ,0x01\n", "line 3: plaintext"},
		{"bad_ciphertext", "h\n0x01,0x\n", "ciphertext"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.in))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Parse error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestValidateRange(t *testing.T) {
	ps := []Pair{{0x01, 0x02}, {0x03, cipher.BlockMask + 1}}
	err := Validate(ps)
	if !errors.Is(err, cipher.ErrBlockRange) {
		t.Fatalf("Validate = %v, want ErrBlockRange", err)
	}
	if !strings.Contains(err.Error(), "pair 1 ciphertext") {
		t.Errorf("error should name the offending pair: %v", err)
	}
}

func TestGenerateWriteParse(t *testing.T) {
	c := cipher.Default()
	key := cipher.KeyFromUint64(0xC0FFEE15C0FFEE)
	ps := Generate(c, key, 8, rand.New(rand.NewSource(7)))

	var buf bytes.Buffer
	if err := Write(&buf, ps); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), Header+"\n0x") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	back, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Validate(back); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for i, p := range back {
		if p != ps[i] {
			t.Errorf("pair %d = %+v, want %+v", i, p, ps[i])
		}
		if got := c.Encrypt(p.Plaintext, key, cipher.Rounds); got != p.Ciphertext {
			t.Errorf("pair %d does not encrypt under the key", i)
		}
	}
}
