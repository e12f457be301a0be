package domain

import (
	"reflect"
	"testing"
)

func TestBuildSidePots(t *testing.T) {
	tests := []struct {
		name      string
		committed []int64
		eligible  []bool
		want      []SidePot
	}{
		{
			name:      "equal stakes form one pot",
			committed: []int64{20, 20, 20},
			eligible:  []bool{true, true, true},
			want:      []SidePot{{Amount: 60, EligibleSeats: []int{0, 1, 2}}},
		},
		{
			name:      "short all-in creates a side pot",
			committed: []int64{10, 30, 30},
			eligible:  []bool{true, true, true},
			want: []SidePot{
				{Amount: 30, EligibleSeats: []int{0, 1, 2}},
				{Amount: 40, EligibleSeats: []int{1, 2}},
			},
		},
		{
			name:      "folded chips fund pots without eligibility",
			committed: []int64{30, 30, 10},
			eligible:  []bool{true, true, false},
			want:      []SidePot{{Amount: 70, EligibleSeats: []int{0, 1}}},
		},
		{
			name:      "two all-ins at different depths",
			committed: []int64{5, 15, 40, 40},
			eligible:  []bool{true, true, true, true},
			want: []SidePot{
				{Amount: 20, EligibleSeats: []int{0, 1, 2, 3}},
				{Amount: 30, EligibleSeats: []int{1, 2, 3}},
				{Amount: 50, EligibleSeats: []int{2, 3}},
			},
		},
		{
			name:      "folded over-commitment joins the previous tier",
			committed: []int64{10, 10, 50},
			eligible:  []bool{true, true, false},
			want:      []SidePot{{Amount: 70, EligibleSeats: []int{0, 1}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSidePots(tt.committed, tt.eligible)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("BuildSidePots() = %+v, want %+v", got, tt.want)
			}
			var total, sum int64
			for _, v := range tt.committed {
				total += v
			}
			for _, p := range got {
				sum += p.Amount
			}
			if sum != total {
				t.Fatalf("pots sum to %d, want %d", sum, total)
			}
		})
	}
}

func TestSplitPotRemainderToFirst(t *testing.T) {
	got := SplitPot(41, []int{2, 0})
	if got[2] != 21 || got[0] != 20 {
		t.Fatalf("SplitPot(41) = %v, want seat 2=21 seat 0=20", got)
	}
}
