package history

import (
	"encoding/json"
	"fmt"
	"testing"

	"labelarcade/internal/model"
)

func rec(taskID string, secs float64) model.SubmissionRecord {
	return model.SubmissionRecord{TaskID: json.Number(taskID), TimeTakenInSeconds: &secs}
}

func recNull(taskID string) model.SubmissionRecord {
	return model.SubmissionRecord{TaskID: json.Number(taskID)}
}

func TestAverageTimesFiltersNullsAndAverages(t *testing.T) {
	out := AverageTimes([]model.SubmissionRecord{
		rec("1", 10),
		rec("1", 20),
		recNull("2"),
	})
	if len(out) != 1 {
		t.Fatalf("expected the null-only group dropped, got %#v", out)
	}
	if out[0].TaskID != "1" || out[0].AvgTime != 15 || out[0].Samples != 2 {
		t.Fatalf("group: %#v", out[0])
	}
}

func TestAverageTimesRoundsToTwoDecimals(t *testing.T) {
	out := AverageTimes([]model.SubmissionRecord{
		rec("9", 10),
		rec("9", 11),
		rec("9", 11),
	})
	if out[0].AvgTime != 10.67 {
		t.Fatalf("avg: %v", out[0].AvgTime)
	}
}

func TestAverageTimesKeepsFirstAppearanceOrder(t *testing.T) {
	out := AverageTimes([]model.SubmissionRecord{
		rec("30", 5),
		rec("10", 7),
		rec("30", 9),
		rec("20", 1),
	})
	if len(out) != 3 {
		t.Fatalf("groups: %#v", out)
	}
	if out[0].TaskID != "30" || out[1].TaskID != "10" || out[2].TaskID != "20" {
		t.Fatalf("order: %q %q %q", out[0].TaskID, out[1].TaskID, out[2].TaskID)
	}
}

func TestAverageTimesCapsGroups(t *testing.T) {
	var records []model.SubmissionRecord
	for i := 0; i < 15; i++ {
		records = append(records, rec(fmt.Sprintf("%d", i), float64(i)))
	}
	out := AverageTimes(records)
	if len(out) != MaxChartGroups {
		t.Fatalf("expected %d groups, got %d", MaxChartGroups, len(out))
	}
	if out[0].TaskID != "0" || out[len(out)-1].TaskID != "9" {
		t.Fatalf("window: %q..%q", out[0].TaskID, out[len(out)-1].TaskID)
	}
}

func TestAverageTimesEmptyInput(t *testing.T) {
	if out := AverageTimes(nil); len(out) != 0 {
		t.Fatalf("expected empty output, got %#v", out)
	}
}

func TestAverageTimesNullGroupDoesNotConsumeACapSlot(t *testing.T) {
	records := []model.SubmissionRecord{recNull("0")}
	for i := 1; i <= 11; i++ {
		records = append(records, rec(fmt.Sprintf("%d", i), 1))
	}
	out := AverageTimes(records)
	if len(out) != MaxChartGroups {
		t.Fatalf("groups: %d", len(out))
	}
	if out[0].TaskID != "1" {
		t.Fatalf("first group: %q", out[0].TaskID)
	}
}
