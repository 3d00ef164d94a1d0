package command

import (
	"reflect"
	"testing"

	"github.com/harshul/coderun/internal/language"
)

func TestBuildInterpreted(t *testing.T) {
	p := language.Profile{ID: "echo-lang", Mode: language.ModeInterpreted, Template: "echo $FILE", Strategy: language.Interpreted}

	plan, err := Build(p, "/tmp/a.txt", "/tmp/build", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.Run != "echo /tmp/a.txt" {
		t.Errorf("Run = %q, want %q", plan.Run, "echo /tmp/a.txt")
	}
	if len(plan.Compile) != 0 {
		t.Errorf("interpreted plan should not compile, got %v", plan.Compile)
	}
}

func TestBuildDirectRun(t *testing.T) {
	p := language.Profile{ID: "go", Compiler: "go", DirectRun: "go run $FILE", Strategy: language.CompiledDirectRun}

	plan, err := Build(p, "/src/main.go", "/src/build", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.Run != "go run /src/main.go" {
		t.Errorf("Run = %q", plan.Run)
	}
	if plan.Compile != nil || plan.Artifact != "" {
		t.Errorf("direct run should not materialize an artifact: %+v", plan)
	}
}

func TestBuildStandard(t *testing.T) {
	p := language.Profile{ID: "cpp", Compiler: "g++", OutputFlag: "-o", Strategy: language.CompiledStandard}

	plan, err := Build(p, "/src/sol.cpp", "/src/build", "-O2 -DLOCAL='1 2'")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"g++", "-O2", "-DLOCAL=1 2", "/src/sol.cpp", "-o", "/src/build/sol"}
	if !reflect.DeepEqual(plan.Compile, want) {
		t.Errorf("Compile = %q, want %q", plan.Compile, want)
	}
	if plan.Artifact != "/src/build/sol" || plan.Run != "/src/build/sol" {
		t.Errorf("unexpected artifact/run: %q / %q", plan.Artifact, plan.Run)
	}
}

func TestBuildTwoPhase(t *testing.T) {
	p := language.Profile{
		ID:           "java",
		Compiler:     "javac",
		OutputFlag:   "-d",
		PostBuildRun: "cd $OUTDIR && java $BASENAME",
		Strategy:     language.CompiledTwoPhase,
	}

	plan, err := Build(p, "/src/Main.java", "/src/my build", "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"javac", "/src/Main.java", "-d", "/src/my build"}
	if !reflect.DeepEqual(plan.Compile, want) {
		t.Errorf("Compile = %q, want %q", plan.Compile, want)
	}
	if plan.Run != "cd '/src/my build' && java Main" {
		t.Errorf("Run = %q", plan.Run)
	}
}

func TestBuildRejectsBadFlags(t *testing.T) {
	p := language.Profile{ID: "c", Compiler: "gcc", OutputFlag: "-o", Strategy: language.CompiledStandard}
	if _, err := Build(p, "/src/a.c", "/src/build", `-D"unterminated`); err == nil {
		t.Error("expected an error for unbalanced quotes")
	}
}

func TestRedirections(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"stdin", WithStdin("./a", "/t/1.in"), "(./a) < /t/1.in"},
		{"stdin with quote", WithStdin("./a", "/t/it's.in"), `(./a) < '/t/it'"'"'s.in'`},
		{"io", WithIO("./a", "in.txt", "out file.txt"), "(./a) < in.txt > 'out file.txt'"},
		{"io empty output", WithIO("./a", "in.txt", ""), "(./a) < in.txt > ''"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
