// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package twosum

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/factorbench/services/factorial/experiment"
	"github.com/AleutianAI/factorbench/services/factorial/factors"
	"github.com/AleutianAI/factorbench/services/factorial/harness"
)

func TestFactors(t *testing.T) {
	assert.Equal(t, "len:1024", factors.LongKey(Data{Len: 1024}))
	assert.Equal(t, "store-type:SortedVec", factors.LongKey(Method{Store: StoreSortedVec}))
	assert.Equal(t, "StoreType(9)", StoreType(9).String())

	var keys []string
	for _, m := range DefaultMethods() {
		keys = append(keys, factors.ShortKey(m))
	}
	assert.Equal(t, []string{
		"store-type:None",
		"store-type:SortedVec",
		"store-type:HashMap",
		"store-type:SortedMap",
	}, keys)
	assert.Empty(t, factors.DuplicateKeys(DefaultData(), factors.Short))
}

func TestBuildInput(t *testing.T) {
	exp := Experiment{}
	for _, n := range []int{1, 4, 32, 1024} {
		in := exp.BuildInput(Data{Len: n})
		require.True(t, in.Pair.Found)
		assert.Less(t, in.Pair.I, in.Pair.J)
		assert.Equal(t, int64(Target), in.Array[in.Pair.I]+in.Array[in.Pair.J], "len %d", n)

		again := exp.BuildInput(Data{Len: n})
		assert.Equal(t, in, again, "inputs are seeded")
	}
}

func TestExecute_AllStoresAgree(t *testing.T) {
	exp := Experiment{}
	for _, d := range []Data{{Len: 32}, {Len: 1024}} {
		in := exp.BuildInput(d)
		want, ok := exp.ExpectedOutput(d, in)
		require.True(t, ok)

		for _, m := range DefaultMethods() {
			t.Run(factors.LongKey(d)+"/"+m.Store.String(), func(t *testing.T) {
				got := exp.Execute(m, in)
				assert.Equal(t, want, got)
				assert.NoError(t, exp.ValidateOutput(d, in, got))
			})
		}
	}
}

func TestExecute_NoSolution(t *testing.T) {
	in := Input{Array: []int64{5, 7, 9}}
	for _, m := range DefaultMethods() {
		assert.Equal(t, Pair{}, Experiment{}.Execute(m, in), m.Store.String())
	}
}

func TestValidateOutput(t *testing.T) {
	in := Input{Array: []int64{4, 1, 5, 2}}
	tests := []struct {
		name    string
		out     Pair
		wantErr error
		ok      bool
	}{
		{name: "valid", out: Pair{I: 1, J: 3, Found: true}, ok: true},
		{name: "not found", out: Pair{}},
		{name: "same position", out: Pair{I: 1, J: 1, Found: true}},
		{name: "out of range", out: Pair{I: 1, J: 9, Found: true}},
		{name: "wrong sum", out: Pair{I: 0, J: 1, Found: true}, wantErr: ErrWrongSum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Experiment{}.ValidateOutput(Data{Len: 4}, in, tt.out)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func BenchmarkTwoSum(b *testing.B) {
	root := b.TempDir()
	runner := experiment.NewRunner(harness.NewTesting(b, root), root, experiment.WithoutArtifacts())
	_, err := experiment.Bench[Data, Method, Input, Pair](context.Background(), runner, Experiment{}, Name,
		[]Data{{Len: 1 << 5}, {Len: 1 << 10}}, DefaultMethods())
	if err != nil {
		b.Fatal(err)
	}
}
