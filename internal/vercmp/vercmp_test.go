package vercmp

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rosalinux/abf-autoupdate/internal/common/command"
)

func TestExecComparatorExitCodes(t *testing.T) {
	tests := []struct {
		name    string
		exit    int
		want    Result
		wantErr bool
	}{
		{"same", 0, Same, false},
		{"newer", 11, Newer, false},
		{"older", 12, Older, false},
		{"usage error", 1, Same, true},
		{"not started", -1, Same, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &command.MockRunner{RunFunc: func(dir, name string, args ...string) (*command.Result, error) {
				if tt.exit == 0 {
					return &command.Result{}, nil
				}
				return command.Exit(name, tt.exit, "")
			}}

			got, err := NewExecComparator(runner, "").Compare(context.Background(), "7.3.0", "7.2.0")
			if tt.wantErr {
				if !errors.Is(err, ErrComparison) {
					t.Errorf("Compare() error = %v, want ErrComparison", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compare() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Compare() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecComparatorArguments(t *testing.T) {
	runner := command.NewMockRunner()
	if _, err := NewExecComparator(runner, "").Compare(context.Background(), "2.0", "1.0"); err != nil {
		t.Fatal(err)
	}

	calls := runner.CallsTo("rpmdev-vercmp")
	if len(calls) != 1 {
		t.Fatalf("expected one rpmdev-vercmp call, got %d", len(calls))
	}
	if got := calls[0].String(); got != "rpmdev-vercmp 2.0 1.0" {
		t.Errorf("call = %q, want upstream first", got)
	}
}

func TestRPMComparator(t *testing.T) {
	tests := []struct {
		upstream string
		current  string
		want     Result
	}{
		{"7.3.0", "7.2.0", Newer},
		{"7.2.0", "7.2.0", Same},
		{"7.1.9", "7.2.0", Older},
		{"1.10", "1.9", Newer},
		{"2.0", "1.99.99", Newer},
		{"1.0a", "1.0", Newer},
		{"1:1.0", "2.0", Newer},
		{"20240101", "20231231", Newer},
	}

	for _, tt := range tests {
		t.Run(tt.upstream+"_vs_"+tt.current, func(t *testing.T) {
			got, err := RPMComparator{}.Compare(context.Background(), tt.upstream, tt.current)
			if err != nil {
				t.Fatalf("Compare() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %v, want %v", tt.upstream, tt.current, got, tt.want)
			}
		})
	}
}

func TestRPMComparatorEmpty(t *testing.T) {
	for _, pair := range [][2]string{{"", "1.0"}, {"1.0", ""}, {" ", " "}} {
		if _, err := (RPMComparator{}).Compare(context.Background(), pair[0], pair[1]); !errors.Is(err, ErrComparison) {
			t.Errorf("Compare(%q, %q) error = %v, want ErrComparison", pair[0], pair[1], err)
		}
	}
}

func genDotted() gopter.Gen {
	return gen.RegexMatch(`^[1-9][0-9]{0,2}(\.[0-9]{1,3}){0,3}$`)
}

func TestRPMComparatorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	cmp := RPMComparator{}
	ctx := context.Background()

	properties.Property("a version equals itself", prop.ForAll(
		func(v string) bool {
			got, err := cmp.Compare(ctx, v, v)
			return err == nil && got == Same
		},
		genDotted(),
	))

	properties.Property("ordering is antisymmetric", prop.ForAll(
		func(a, b string) bool {
			ab, err1 := cmp.Compare(ctx, a, b)
			ba, err2 := cmp.Compare(ctx, b, a)
			if err1 != nil || err2 != nil {
				return false
			}
			switch ab {
			case Newer:
				return ba == Older
			case Older:
				return ba == Newer
			default:
				return ba == Same
			}
		},
		genDotted(),
		genDotted(),
	))

	properties.TestingRun(t)
}

func TestNew(t *testing.T) {
	if _, ok := New("builtin", nil, "").(RPMComparator); !ok {
		t.Error("New(builtin) should return RPMComparator")
	}
	c, ok := New("rpmdev-vercmp", command.NewMockRunner(), "/usr/bin/rpmdev-vercmp").(*ExecComparator)
	if !ok {
		t.Fatal("New(rpmdev-vercmp) should return *ExecComparator")
	}
	if c.Program != "/usr/bin/rpmdev-vercmp" {
		t.Errorf("Program = %q", c.Program)
	}
}

func TestResultString(t *testing.T) {
	for r, want := range map[Result]string{Same: "same", Newer: "newer", Older: "older", Result(9): "Result(9)"} {
		if got := r.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
