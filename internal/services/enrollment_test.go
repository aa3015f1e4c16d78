package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
)

func TestEnrollBuildsSyllabus(t *testing.T) {
	env := newTestEnv(t)
	svc := env.enrollmentService()
	ctx := context.Background()
	teacher := testutil.SeedUser(t, ctx, env.db, "profe@example.com", types.RoleTeacher)
	student := testutil.SeedUser(t, ctx, env.db, "ana@example.com", types.RoleStudent)
	course := testutil.SeedCourse(t, ctx, env.db, teacher.ID, "MAT-1")
	testutil.SeedTopics(t, ctx, env.db, course.ID, 3)
	sctx := asUser(student)

	res, err := svc.Enroll(sctx, " mat-1 ")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if res.Warning != "" || len(res.Syllabus) != 3 {
		t.Fatalf("warning=%q syllabus=%d", res.Warning, len(res.Syllabus))
	}
	for i, e := range res.Syllabus {
		want := types.SyllabusPending
		if i == 0 {
			want = types.SyllabusInProgress
		}
		if e.Status != want || e.OrderIndex != i {
			t.Fatalf("entry %d: status=%s order=%d", i, e.Status, e.OrderIndex)
		}
	}

	if _, err := svc.Enroll(sctx, "MAT-1"); statusOf(err) != http.StatusConflict {
		t.Fatalf("second enroll: err=%v want 409", err)
	}
	if _, err := svc.Enroll(sctx, "NOPE"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("unknown code: err=%v want 404", err)
	}
	if _, err := svc.Enroll(asUser(teacher), "MAT-1"); statusOf(err) != http.StatusForbidden {
		t.Fatalf("teacher enroll: err=%v want 403", err)
	}

	list, err := svc.ListCourses(sctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListCourses: n=%d err=%v", len(list), err)
	}
	if list[0].Teacher != "profe@example.com" || list[0].Course.ID != course.ID {
		t.Fatalf("listed=%+v", list[0])
	}
}

func TestEnrollCourseWithoutTopicsWarns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, ctx, env.db, "t@example.com", types.RoleTeacher)
	student := testutil.SeedUser(t, ctx, env.db, "s@example.com", types.RoleStudent)
	testutil.SeedCourse(t, ctx, env.db, teacher.ID, "EMPTY")

	res, err := env.enrollmentService().Enroll(asUser(student), "EMPTY")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if res.Warning != WarningNoTopics || len(res.Syllabus) != 0 || res.Enrollment == nil {
		t.Fatalf("res=%+v", res)
	}
}

func TestStudentCourseDetailsAndProgress(t *testing.T) {
	env := newTestEnv(t)
	svc := env.enrollmentService()
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	teacher := testutil.SeedUser(t, ctx, env.db, "t@example.com", types.RoleTeacher)
	student := testutil.SeedUser(t, ctx, env.db, "s@example.com", types.RoleStudent)
	course := testutil.SeedCourse(t, ctx, env.db, teacher.ID, "HIS-1")
	topics := testutil.SeedTopics(t, ctx, env.db, course.ID, 3)
	sctx := asUser(student)

	if _, err := svc.GetCourseDetails(sctx, course.ID); statusOf(err) != http.StatusNotFound {
		t.Fatalf("not enrolled: err=%v want 404", err)
	}
	if _, err := svc.Enroll(sctx, "HIS-1"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := env.syllabi.UpdateStatus(dbc, student.ID, course.ID, topics[0].ID, types.SyllabusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	details, err := svc.GetCourseDetails(sctx, course.ID)
	if err != nil {
		t.Fatalf("GetCourseDetails: %v", err)
	}
	if details.Progress != 33 || len(details.Topics) != 3 {
		t.Fatalf("progress=%d topics=%d", details.Progress, len(details.Topics))
	}
	if details.Topics[0].Status != types.SyllabusCompleted || details.Topics[1].Status != types.SyllabusPending {
		t.Fatalf("statuses=%s,%s", details.Topics[0].Status, details.Topics[1].Status)
	}

	if err := svc.UpdateProgress(sctx, course.ID, 101); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("progress 101: err=%v want 400", err)
	}
	if err := svc.UpdateProgress(sctx, course.ID, 40); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if e, err := env.enrollments.Get(dbc, student.ID, course.ID); err != nil || e.Progress != 40 {
		t.Fatalf("stored progress: %+v err=%v", e, err)
	}
}

func TestDropRemovesSyllabusAndChat(t *testing.T) {
	env := newTestEnv(t)
	svc := env.enrollmentService()
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	teacher := testutil.SeedUser(t, ctx, env.db, "t@example.com", types.RoleTeacher)
	student := testutil.SeedUser(t, ctx, env.db, "s@example.com", types.RoleStudent)
	course := testutil.SeedCourse(t, ctx, env.db, teacher.ID, "GEO-1")
	testutil.SeedTopics(t, ctx, env.db, course.ID, 2)
	sctx := asUser(student)

	if err := svc.Drop(sctx, course.ID); statusOf(err) != http.StatusNotFound {
		t.Fatalf("drop without enrollment: err=%v want 404", err)
	}
	if _, err := svc.Enroll(sctx, "GEO-1"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	session, err := env.sessions.GetOrCreate(dbc, student.ID, course.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := env.messages.Append(dbc, session.ID, []*types.ChatMessage{
		{UserID: student.ID, Role: types.ChatRoleAssistant, Content: "bienvenida"},
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := svc.Drop(sctx, course.ID); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if rows, err := env.syllabi.ListForStudentCourse(dbc, student.ID, course.ID); err != nil || len(rows) != 0 {
		t.Fatalf("syllabus left: %d err=%v", len(rows), err)
	}
	if s, err := env.sessions.Get(dbc, student.ID, course.ID); err != nil || s != nil {
		t.Fatalf("session left: %v err=%v", s, err)
	}
	if _, err := svc.Enroll(sctx, "GEO-1"); err != nil {
		t.Fatalf("re-enroll after drop: %v", err)
	}
}
