package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, role string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
		Role:      role,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, teacherID uuid.UUID, code string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:          uuid.New(),
		TeacherID:   teacherID,
		Name:        "Course " + code,
		Description: "seeded",
		Code:        code,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedTopics creates n topics named "Topic 1".."Topic n" in position order.
func SeedTopics(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, n int) []*types.Topic {
	tb.Helper()
	out := make([]*types.Topic, 0, n)
	for i := 0; i < n; i++ {
		tp := &types.Topic{
			ID:       uuid.New(),
			CourseID: courseID,
			Name:     fmt.Sprintf("Topic %d", i+1),
			Content:  "content",
			Position: i,
		}
		if err := tx.WithContext(ctx).Create(tp).Error; err != nil {
			tb.Fatalf("seed topic: %v", err)
		}
		out = append(out, tp)
	}
	return out
}

// SeedSyllabus writes one entry per topic with the given statuses.
func SeedSyllabus(tb testing.TB, ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID, topics []*types.Topic, statuses ...string) []*types.SyllabusEntry {
	tb.Helper()
	out := make([]*types.SyllabusEntry, 0, len(topics))
	for i, tp := range topics {
		status := types.SyllabusPending
		if i < len(statuses) {
			status = statuses[i]
		}
		e := &types.SyllabusEntry{
			ID:         uuid.New(),
			StudentID:  studentID,
			CourseID:   courseID,
			TopicID:    tp.ID,
			Status:     status,
			OrderIndex: i,
		}
		if err := tx.WithContext(ctx).Create(e).Error; err != nil {
			tb.Fatalf("seed syllabus: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
