package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/tutorbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/apierr"
	"github.com/yungbote/tutorbridge-backend/internal/platform/dbctx"
)

func statusOf(err error) int {
	if ae, ok := apierr.As(err); ok {
		return ae.Status
	}
	return 0
}

func TestCourseRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	svc := env.courseService()
	student := testutil.SeedUser(t, context.Background(), env.db, "s@example.com", types.RoleStudent)

	if _, err := svc.CreateCourse(context.Background(), CourseInput{Name: "X", Code: "X1"}); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("anonymous: err=%v want 401", err)
	}
	if _, err := svc.CreateCourse(asUser(student), CourseInput{Name: "X", Code: "X1"}); statusOf(err) != http.StatusForbidden {
		t.Fatalf("student: err=%v want 403", err)
	}
}

func TestCourseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := env.courseService()
	ctx := context.Background()
	teacher := testutil.SeedUser(t, ctx, env.db, "t@example.com", types.RoleTeacher)
	other := testutil.SeedUser(t, ctx, env.db, "o@example.com", types.RoleTeacher)
	tctx := asUser(teacher)

	c, err := svc.CreateCourse(tctx, CourseInput{Name: " Álgebra ", Description: "intro", Code: "alg-101"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if c.Code != "ALG-101" || c.Name != "Álgebra" {
		t.Fatalf("course=%+v", c)
	}
	if _, err := svc.CreateCourse(tctx, CourseInput{Name: "Dup", Code: "ALG-101"}); statusOf(err) != http.StatusConflict {
		t.Fatalf("duplicate code: err=%v want 409", err)
	}
	if _, err := svc.CreateCourse(tctx, CourseInput{Name: "", Code: "Z"}); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("missing name: err=%v want 400", err)
	}

	t1, err := svc.CreateTopic(tctx, c.ID, TopicInput{Name: "Sumas", Content: "a+b"})
	if err != nil {
		t.Fatalf("CreateTopic #1: %v", err)
	}
	t2, err := svc.CreateTopic(tctx, c.ID, TopicInput{Name: "Restas", Content: "a-b", Activities: "ejercicios"})
	if err != nil {
		t.Fatalf("CreateTopic #2: %v", err)
	}
	if t1.Position != 0 || t2.Position != 1 || t1.Activities != "[]" {
		t.Fatalf("positions=%d,%d activities=%q", t1.Position, t2.Position, t1.Activities)
	}

	name := "Sumas y más"
	if got, err := svc.UpdateTopic(tctx, t1.ID, TopicUpdate{Name: &name}); err != nil || got.Name != name {
		t.Fatalf("UpdateTopic: got=%v err=%v", got, err)
	}
	if _, err := svc.UpdateTopic(asUser(other), t1.ID, TopicUpdate{Name: &name}); statusOf(err) != http.StatusNotFound {
		t.Fatalf("foreign UpdateTopic: err=%v want 404", err)
	}

	if _, err := svc.UpsertPersona(tctx, c.ID, PersonaInput{Tone: "amigable", Language: "es"}); err != nil {
		t.Fatalf("UpsertPersona: %v", err)
	}
	if _, err := svc.UpsertPersona(tctx, c.ID, PersonaInput{Tone: "formal", Language: "es"}); err != nil {
		t.Fatalf("UpsertPersona again: %v", err)
	}

	details, err := svc.GetCourseDetails(tctx, c.ID)
	if err != nil {
		t.Fatalf("GetCourseDetails: %v", err)
	}
	if len(details.Topics) != 2 || details.Topics[0].Name != name || details.Persona == nil || details.Persona.Tone != "formal" {
		t.Fatalf("details=%+v persona=%+v", details, details.Persona)
	}
	if _, err := svc.GetCourseDetails(asUser(other), c.ID); statusOf(err) != http.StatusNotFound {
		t.Fatalf("foreign details: err=%v want 404", err)
	}

	desc := "nueva"
	if got, err := svc.UpdateCourse(tctx, c.ID, CourseUpdate{Description: &desc}); err != nil || got.Description != "nueva" || got.Name != "Álgebra" {
		t.Fatalf("UpdateCourse: got=%+v err=%v", got, err)
	}

	if err := svc.DeleteTopic(tctx, t2.ID); err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	list, err := svc.ListTopics(tctx, c.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListTopics: n=%d err=%v", len(list), err)
	}

	mine, err := svc.ListTeacherCourses(tctx)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListTeacherCourses: n=%d err=%v", len(mine), err)
	}
	if theirs, err := svc.ListTeacherCourses(asUser(other)); err != nil || len(theirs) != 0 {
		t.Fatalf("other teacher sees %d courses err=%v", len(theirs), err)
	}
}

func TestDeleteCourseRemovesStudentState(t *testing.T) {
	env := newTestEnv(t)
	svc := env.courseService()
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	teacher := testutil.SeedUser(t, ctx, env.db, "t@example.com", types.RoleTeacher)
	student := testutil.SeedUser(t, ctx, env.db, "s@example.com", types.RoleStudent)
	course := testutil.SeedCourse(t, ctx, env.db, teacher.ID, "DEL-1")
	topics := testutil.SeedTopics(t, ctx, env.db, course.ID, 2)

	if _, err := env.enrollmentService().Enroll(asUser(student), "del-1"); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	session, err := env.sessions.GetOrCreate(dbc, student.ID, course.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := env.messages.Append(dbc, session.ID, []*types.ChatMessage{
		{UserID: student.ID, TopicID: testutil.PtrUUID(topics[0].ID), Role: types.ChatRoleUser, Content: "hola"},
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := svc.DeleteCourse(asUser(student), course.ID); statusOf(err) != http.StatusForbidden {
		t.Fatalf("student delete: err=%v want 403", err)
	}
	if err := svc.DeleteCourse(asUser(teacher), course.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}

	if got, err := env.courses.GetByCode(dbc, "DEL-1"); err != nil || got != nil {
		t.Fatalf("course still visible: %v err=%v", got, err)
	}
	if e, err := env.enrollments.Get(dbc, student.ID, course.ID); err != nil || e != nil {
		t.Fatalf("enrollment left: %v err=%v", e, err)
	}
	if rows, err := env.syllabi.ListForStudentCourse(dbc, student.ID, course.ID); err != nil || len(rows) != 0 {
		t.Fatalf("syllabus left: %d err=%v", len(rows), err)
	}
	if s, err := env.sessions.Get(dbc, student.ID, course.ID); err != nil || s != nil {
		t.Fatalf("session left: %v err=%v", s, err)
	}
	if n, err := env.messages.CountBySession(dbc, session.ID); err != nil || n != 0 {
		t.Fatalf("messages left: %d err=%v", n, err)
	}
}

func TestImportCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, ctx, env.db, "t@example.com", types.RoleTeacher)
	testutil.SeedCourse(t, ctx, env.db, teacher.ID, "COURSE-TAKEN")

	svc := env.courseService().(*courseService)
	codes := []string{"COURSE-TAKEN", "COURSE-FRESH"}
	svc.newCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	body := []byte(`
curso_nombre: Física
modulos:
  - nombre: Cinemática
    subtemas:
      - id: 1
        nombre: Velocidad
      - id: "1.2"
        nombre: Aceleración
  - nombre: Dinámica
    subtemas:
      - id: 2
        nombre: Fuerzas
`)
	res, err := svc.ImportCourse(asUser(teacher), body)
	if err != nil {
		t.Fatalf("ImportCourse: %v", err)
	}
	if res.Course.Code != "COURSE-FRESH" || res.Course.Description != "Curso importado con 2 módulos" {
		t.Fatalf("course=%+v", res.Course)
	}
	if len(res.Topics) != 3 {
		t.Fatalf("topics=%d want 3", len(res.Topics))
	}
	first := res.Topics[0]
	if first.Name != "Cinemática - Velocidad" || first.Position != 0 || first.Activities != "Estudia el contenido de Velocidad" {
		t.Fatalf("first topic=%+v", first)
	}
	if !strings.Contains(first.Content, "**Módulo:** Cinemática") || !strings.Contains(res.Topics[1].Content, "ID: 1.2") {
		t.Fatalf("content=%q / %q", first.Content, res.Topics[1].Content)
	}
	if res.Topics[2].Position != 2 {
		t.Fatalf("last position=%d", res.Topics[2].Position)
	}

	jsonBody := []byte(`{"curso_nombre":"Química","modulos":[]}`)
	svc.newCode = randomCourseCode
	empty, err := svc.ImportCourse(asUser(teacher), jsonBody)
	if err != nil || len(empty.Topics) != 0 || !strings.HasPrefix(empty.Course.Code, "COURSE-") {
		t.Fatalf("json import: res=%+v err=%v", empty, err)
	}

	if _, err := svc.ImportCourse(asUser(teacher), []byte(`{"modulos":[]}`)); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("missing name: err=%v want 400", err)
	}
}

func TestSearchCatalog(t *testing.T) {
	env := newTestEnv(t)
	svc := env.courseService()
	ctx := context.Background()
	teacher := testutil.SeedUser(t, ctx, env.db, "t@example.com", types.RoleTeacher)
	for _, code := range []string{"BIO-1", "FIS-1", "QUI-1"} {
		testutil.SeedCourse(t, ctx, env.db, teacher.ID, code)
	}

	all, err := svc.SearchCatalog(asUser(teacher), "", 2)
	if err != nil || len(all) != 2 {
		t.Fatalf("empty query: n=%d err=%v", len(all), err)
	}
	hits, err := svc.SearchCatalog(asUser(teacher), "fis", 0)
	if err != nil {
		t.Fatalf("SearchCatalog: %v", err)
	}
	if len(hits) == 0 || hits[0].Code != "FIS-1" {
		t.Fatalf("hits=%v", hits)
	}
	if none, err := svc.SearchCatalog(asUser(teacher), "zzzz", 0); err != nil || len(none) != 0 {
		t.Fatalf("no match: n=%d err=%v", len(none), err)
	}
}
