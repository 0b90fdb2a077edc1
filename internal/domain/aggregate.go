package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ContributedActivity is one completed activity inside a group breakdown.
type ContributedActivity struct {
	ActivityID     int64
	Name           string
	Hours          decimal.Decimal
	CompletionDate time.Time
}

// GroupContribution sums a user's completed hours inside one volunteer group.
type GroupContribution struct {
	GroupID    int64
	GroupName  string
	TotalHours decimal.Decimal
	Activities []ContributedActivity
}

// HoursTally is the per-group and global roll-up of a user's completed hours.
type HoursTally struct {
	Groups []GroupContribution
	Total  decimal.Decimal
}

// TallyHours groups rows by volunteer group. Groups keep the order in which
// they first appear in rows; activities inside a group are ordered by
// completion date, most recent first. Rows that are not completed, or whose
// activity or group is inactive, are ignored.
func TallyHours(rows []ParticipationRow) HoursTally {
	tally := HoursTally{
		Groups: make([]GroupContribution, 0),
		Total:  decimal.Zero,
	}
	positions := make(map[int64]int)

	for _, row := range rows {
		if !row.Counts() {
			continue
		}

		pos, seen := positions[row.GroupID]
		if !seen {
			pos = len(tally.Groups)
			positions[row.GroupID] = pos
			tally.Groups = append(tally.Groups, GroupContribution{
				GroupID:    row.GroupID,
				GroupName:  row.GroupName,
				TotalHours: decimal.Zero,
				Activities: make([]ContributedActivity, 0, 1),
			})
		}

		group := &tally.Groups[pos]
		group.TotalHours = group.TotalHours.Add(row.HoursRealized)
		group.Activities = append(group.Activities, ContributedActivity{
			ActivityID:     row.ActivityID,
			Name:           row.ActivityName,
			Hours:          row.HoursRealized,
			CompletionDate: row.CompletionDate,
		})
		tally.Total = tally.Total.Add(row.HoursRealized)
	}

	for i := range tally.Groups {
		activities := tally.Groups[i].Activities
		sort.SliceStable(activities, func(a, b int) bool {
			return completedLater(activities[a].CompletionDate, activities[b].CompletionDate)
		})
	}

	return tally
}

// completedLater orders dated entries newest first and undated entries last.
func completedLater(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return !a.IsZero() && b.IsZero()
	}
	return a.After(b)
}
