package irfile_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"firopt/internal/fir"
	"firopt/internal/irfile"
)

func sampleModule() *fir.Module {
	body := fir.NewBlock(
		fir.DeclareVar(fir.Named("gain", fir.AccessStack), fir.Basic(fir.TypeFloat), fir.Float(0.5)),
		fir.SimpleForLoop("i", fir.LoadFunArgs("count"), fir.NewBlock(
			fir.Store(fir.Indexed("out", fir.AccessStruct, fir.LoadLoop("i")),
				fir.Mul(fir.LoadStack("gain"), fir.MethodCall("tick", fir.LoadLoop("i")))),
		)),
	)
	f := fir.VoidFunction("compute", []fir.Param{{Name: "count", Type: fir.Basic(fir.TypeInt32)}}, body)
	f.Method = true
	return &fir.Module{
		Name:    "osc",
		Globals: fir.NewBlock(fir.DeclareVar(fir.Named("fRec0", fir.AccessStruct), fir.Basic(fir.TypeFloat), nil)),
		Funcs:   []*fir.FunDef{f},
	}
}

func dump(t *testing.T, m *fir.Module) string {
	t.Helper()
	var buf bytes.Buffer
	if err := fir.DumpModule(&buf, m, fir.DumpOptions{}); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestEncodingsDecodeToSameModule(t *testing.T) {
	want := dump(t, sampleModule())
	for _, enc := range []irfile.Encoding{irfile.EncodingMsgpack, irfile.EncodingJSON} {
		t.Run(enc.String(), func(t *testing.T) {
			data, err := irfile.Marshal(irfile.New(sampleModule(), "test"), enc)
			if err != nil {
				t.Fatal(err)
			}
			f, err := irfile.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatal(err)
			}
			if got := dump(t, f.Module); got != want {
				t.Errorf("decoded module:\n%s\nwant:\n%s", got, want)
			}
			if f.Producer != "test" || f.Format != irfile.FormatVersion {
				t.Errorf("header = %q %q", f.Format, f.Producer)
			}
		})
	}
}

func TestFormatVersionCheck(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"1.0.0", true},
		{"1.4.2", true},
		{"2.0.0", false},
		{"0.9.0", false},
		{"latest", false},
	}
	for _, tt := range tests {
		err := irfile.CheckFormat(tt.version)
		if (err == nil) != tt.ok {
			t.Errorf("CheckFormat(%q) = %v", tt.version, err)
		}
		if err != nil && !errors.Is(err, irfile.ErrFormatVersion) {
			t.Errorf("CheckFormat(%q) error not ErrFormatVersion: %v", tt.version, err)
		}
	}

	f := irfile.New(sampleModule(), "")
	f.Format = "3.0.0"
	data, err := irfile.Marshal(f, irfile.EncodingJSON)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := irfile.Decode(bytes.NewReader(data)); !errors.Is(err, irfile.ErrFormatVersion) {
		t.Errorf("decode of future format: %v", err)
	}
}

func TestNormalizeNames(t *testing.T) {
	decomposed := "gai\u0301n"
	m := &fir.Module{Name: "m", Funcs: []*fir.FunDef{
		fir.VoidFunction("f", nil, fir.NewBlock(
			fir.Store(fir.Named("o", fir.AccessStruct), fir.LoadStack(decomposed)),
		)),
	}}
	out := irfile.Normalize(m)
	name := out.Funcs[0].Body.Stmts[0].Store.Value.Load.Addr.Name
	if name != "ga\u00edn" {
		t.Errorf("name = %q, want NFC form", name)
	}
	if irfile.Normalize(out) != out {
		t.Error("normalised module was copied again")
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "osc"+irfile.EncodingMsgpack.Ext())
	if err := irfile.Write(path, irfile.New(sampleModule(), ""), irfile.EncodingMsgpack); err != nil {
		t.Fatal(err)
	}
	f, err := irfile.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Module.Func("compute") == nil {
		t.Error("function lost on disk round trip")
	}
	if !irfile.IsIRPath(path) {
		t.Errorf("IsIRPath(%q) = false", path)
	}
}

func TestTextIsWriteOnly(t *testing.T) {
	data, err := irfile.Marshal(irfile.New(sampleModule(), ""), irfile.EncodingText)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "module osc\n") {
		t.Errorf("text output starts with %q", data[:min(len(data), 20)])
	}
	if _, err := irfile.Decode(bytes.NewReader(data)); err == nil {
		t.Error("text output should not decode")
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"dsp/osc.firb": "dsp/osc",
		"osc.fir.json": "osc",
		"osc.fir.txt":  "osc",
		"notes.ir":     "notes",
		"plain":        "plain",
	}
	for in, want := range tests {
		if got := irfile.Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}
