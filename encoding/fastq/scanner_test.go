// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fastq

import (
	"bytes"
	"testing"
)

const fq = `@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG
ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E
@NB500956:89:HW2FHBGX2:1:11101:13871:1070 1:N:0:ATCACG
CTCAACTCTGAGNCAGACAGAAATACNTTTNNTNTGAGTTACANCNTTCTTTTTCNACATATNCNNNNNTNGNNNT
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEEEE#A#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:9975:1070 1:N:0:ATCACG
GAGTAACCACGTNCCCATGGCCACAGNTGANNGNGTCACACCTNANCCGGGAGAGNCAATCCNGNNNNNGNANNNC
+
AAAAAEEEEEEE#EEEEEEEEEAEEE#EEA##E#EEEEEEEE<#E#<EEEEEEEE#<EEEA/#/#####A#E###A
@NB500956:89:HW2FHBGX2:1:11101:20247:1070 1:N:0:ATCACG
GATCGGAAGAGCNCACGTCTGAACTCNAGTNNCNTCCCGATCTNGNATGCCGTCTNCTGCTTNANNNNNANANNNG
+
AAAAAEEEEEEE#EEEEEEEEEEEEE#AEE##E#A////6AE<#E#EEEEEEEEA#A/EE/E#E#####/#E###E
@NB500956:89:HW2FHBGX2:1:11101:17754:1070 1:N:0:ATCACG
CAAGCAACTTACNTTACTTTAGGCTGNAAANNGNCTGCCTGAANTNCCTGCTCACNAATCCCNCNNNNNCNTNNNT
+
AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEEEEEEE#E#EEEEEEEEE#EAEAEA#/#####E#A###E
@NB500956:89:HW2FHBGX2:1:11101:26223:1070 1:N:0:ATCACG
TCAATTTCAGAACTTTTTATTGGTCTNTTCNNGNATTCATCTTNTNCCTGGTTTANTCTTGGNANNNNNTNTNNNT
+
AAAAAEEEEEEEEEEEEEEEEEEEEE#EEA##E#EEEEEEEEE#E#<EAEEEEEE#EEEEEE#E#####E#E###E
`

func stringScanner(s string) *Scanner {
	return NewScanner(bytes.NewReader([]byte(s)), All)
}

func scanErr(s string) error {
	scan := stringScanner(s)
	var r Read
	for scan.Scan(&r) {
	}
	return scan.Err()
}

func TestFASTQ(t *testing.T) {
	s := stringScanner(fq)
	var r Read
	if !s.Scan(&r) {
		t.Fatal(s.Err())
	}
	expect := Read{
		ID:   "@NB500956:89:HW2FHBGX2:1:11101:25648:1069 1:N:0:ATCACG",
		Seq:  "ATACAGGCCTGANCCACTGTGCCCAGNCTANNTNATTANTGAANANAGAATNGTTNTAAATANANNNNNTNTNNNC",
		Unk:  "+",
		Qual: "AAAAAEEEEEEE#EEAEEEEEEEEEE#EEE##E#EEEE#EEEE#E#EEEEE#EEE#EEEAEE#A#####E#E###E",
	}
	if got, want := r, expect; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	var n int
	for s.Scan(&r) {
		n++
	}
	if got, want := n, 5; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if err := s.Err(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestBadFASTQ(t *testing.T) {
	if got, want := scanErr("12312#"), ErrInvalid; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := scanErr("@1234\n123"), ErrShort; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func lenientReads(t *testing.T, s string) []Read {
	scan := NewLenientScanner(bytes.NewReader([]byte(s)), All)
	var (
		reads []Read
		r     Read
	)
	for scan.Scan(&r) {
		reads = append(reads, r)
	}
	if err := scan.Err(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	return reads
}

func TestLenientFASTQ(t *testing.T) {
	reads := lenientReads(t, fq)
	if got, want := len(reads), 6; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}

	// No "@" or "+" markers are required.
	reads = lenientReads(t, "r1\nACGT\nx\nIIII\n")
	if got, want := reads, []Read{{"r1", "ACGT", "x", "IIII"}}; len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLenientTruncated(t *testing.T) {
	for _, tail := range []string{
		"@r3\n",
		"@r3\nACGT\n",
		"@r3\nACGT\n+\n",
	} {
		reads := lenientReads(t, "@r1\nA\n+\nI\n@r2\nC\n+\nI\n"+tail)
		if got, want := len(reads), 2; got != want {
			t.Errorf("tail %q: got %v, want %v", tail, got, want)
		}
	}
}

func TestLenientEmptyID(t *testing.T) {
	reads := lenientReads(t, "@r1\nA\n+\nI\n\n@r2\nC\n+\nI\n")
	if got, want := len(reads), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTrimPrefix(t *testing.T) {
	r := Read{ID: "@x", Seq: "ACGTACGT", Unk: "+", Qual: "ABCDEFGH"}
	r.TrimPrefix(3)
	if got, want := r, (Read{"@x", "TACGT", "+", "DEFGH"}); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	r.TrimPrefix(10)
	if r.Seq != "" || r.Qual != "" {
		t.Errorf("expected empty read, got %v", r)
	}
}

func TestWriterDefaultSeparator(t *testing.T) {
	b := new(bytes.Buffer)
	if err := NewWriter(b).Write(&Read{ID: "@a", Seq: "AC", Qual: "II"}); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "@a\nAC\n+\nII\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriter(t *testing.T) {
	var (
		s = stringScanner(fq)
		b = new(bytes.Buffer)
		w = NewWriter(b)
		r Read
	)
	for s.Scan(&r) {
		if err := w.Write(&r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), fq; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
