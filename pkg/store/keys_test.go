package store

import "testing"

func TestKeyLayout(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{inputKey("job1"), "matrices_input:job1"},
		{resultKey("job1"), "matrices_output:job1"},
		{matrixPartialKey("job1", 2, 3), "matrix:job1:2,3"},
		{matrixPartialGlob("job1"), "matrix:job1:*"},
		{countPartialKey("a.txt", 1), "count:a.txt:1"},
		{countPartialGlob("a.txt"), "count:a.txt:*"},
		{countResultKey("a.txt"), "count:a.txt"},
	}

	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}
