package taskendpoint

import (
	"context"
	"time"

	stdjwt "github.com/dgrijalva/jwt-go"
	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/tasksvc"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/noteservice"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskservice"
)

// Set collects the task and note endpoints. It also implements both
// taskservice.Service and noteservice.Service, which lets transport clients
// be used wherever a service is expected.
type Set struct {
	CreateTaskEndpoint endpoint.Endpoint
	TasksEndpoint      endpoint.Endpoint
	TaskEndpoint       endpoint.Endpoint
	UpdateTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint endpoint.Endpoint
	CreateNoteEndpoint endpoint.Endpoint
	NotesEndpoint      endpoint.Endpoint
	DeleteNoteEndpoint endpoint.Endpoint
}

func New(tasks taskservice.Service, notes noteservice.Service, logger log.Logger) Set {
	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = MakeCreateTaskEndpoint(tasks)
		createTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateTask"))(createTaskEndpoint)
	}
	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = MakeTasksEndpoint(tasks)
		tasksEndpoint = LoggingMiddleware(log.With(logger, "method", "Tasks"))(tasksEndpoint)
	}
	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = MakeTaskEndpoint(tasks)
		taskEndpoint = LoggingMiddleware(log.With(logger, "method", "Task"))(taskEndpoint)
	}
	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = MakeUpdateTaskEndpoint(tasks)
		updateTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "UpdateTask"))(updateTaskEndpoint)
	}
	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = MakeDeleteTaskEndpoint(tasks)
		deleteTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteTask"))(deleteTaskEndpoint)
	}
	var createNoteEndpoint endpoint.Endpoint
	{
		createNoteEndpoint = MakeCreateNoteEndpoint(notes)
		createNoteEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateNote"))(createNoteEndpoint)
	}
	var notesEndpoint endpoint.Endpoint
	{
		notesEndpoint = MakeNotesEndpoint(notes)
		notesEndpoint = LoggingMiddleware(log.With(logger, "method", "Notes"))(notesEndpoint)
	}
	var deleteNoteEndpoint endpoint.Endpoint
	{
		deleteNoteEndpoint = MakeDeleteNoteEndpoint(notes)
		deleteNoteEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteNote"))(deleteNoteEndpoint)
	}

	return Set{
		CreateTaskEndpoint: createTaskEndpoint,
		TasksEndpoint:      tasksEndpoint,
		TaskEndpoint:       taskEndpoint,
		UpdateTaskEndpoint: updateTaskEndpoint,
		DeleteTaskEndpoint: deleteTaskEndpoint,
		CreateNoteEndpoint: createNoteEndpoint,
		NotesEndpoint:      notesEndpoint,
		DeleteNoteEndpoint: deleteNoteEndpoint,
	}
}

// The identity travels in the context as a bearer token, so the Auth
// arguments of the methods below are not forwarded.

func (s Set) CreateTask(ctx context.Context, _ tasksvc.Auth, title string, priority tasksvc.Priority, dueDate *time.Time) (tasksvc.Task, error) {
	resp, err := s.CreateTaskEndpoint(ctx, CreateTaskRequest{Title: title, Priority: priority, DueDate: dueDate})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(CreateTaskResponse)
	return response.Task, response.Err
}

func (s Set) Tasks(ctx context.Context, _ tasksvc.Auth, opts tasksvc.ListOptions) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(ctx, TasksRequest{Options: opts})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) Task(ctx context.Context, _ tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	resp, err := s.TaskEndpoint(ctx, TaskRequest{TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) UpdateTask(ctx context.Context, _ tasksvc.Auth, taskID string, patch tasksvc.TaskPatch) (tasksvc.Task, error) {
	resp, err := s.UpdateTaskEndpoint(
		ctx,
		UpdateTaskRequest{
			TaskID:    taskID,
			Title:     patch.Title,
			Completed: patch.Completed,
			Priority:  patch.Priority,
			DueDate:   patch.DueDate,
		},
	)
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(UpdateTaskResponse)
	return response.Task, response.Err
}

func (s Set) DeleteTask(ctx context.Context, _ tasksvc.Auth, taskID string) (bool, error) {
	resp, err := s.DeleteTaskEndpoint(ctx, DeleteTaskRequest{TaskID: taskID})
	if err != nil {
		return false, err
	}
	response := resp.(DeleteTaskResponse)
	return response.Result, response.Err
}

func (s Set) CreateNote(ctx context.Context, _ tasksvc.Auth, taskID, content string) (tasksvc.Note, error) {
	resp, err := s.CreateNoteEndpoint(ctx, CreateNoteRequest{TaskID: taskID, Content: content})
	if err != nil {
		return tasksvc.Note{}, err
	}
	response := resp.(CreateNoteResponse)
	return response.Note, response.Err
}

func (s Set) Notes(ctx context.Context, _ tasksvc.Auth, taskID string) ([]tasksvc.Note, error) {
	resp, err := s.NotesEndpoint(ctx, NotesRequest{TaskID: taskID})
	if err != nil {
		return nil, err
	}
	response := resp.(NotesResponse)
	return response.Notes, response.Err
}

func (s Set) DeleteNote(ctx context.Context, _ tasksvc.Auth, noteID string) (bool, error) {
	resp, err := s.DeleteNoteEndpoint(ctx, DeleteNoteRequest{NoteID: noteID})
	if err != nil {
		return false, err
	}
	response := resp.(DeleteNoteResponse)
	return response.Result, response.Err
}

func MakeCreateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(CreateTaskRequest)
		t, err := s.CreateTask(ctx, Identity(ctx), req.Title, req.Priority, req.DueDate)
		return CreateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(TasksRequest)
		t, err := s.Tasks(ctx, Identity(ctx), req.Options)
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(TaskRequest)
		t, err := s.Task(ctx, Identity(ctx), req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeUpdateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(UpdateTaskRequest)
		t, err := s.UpdateTask(ctx, Identity(ctx), req.TaskID, req.Patch())
		return UpdateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeDeleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(DeleteTaskRequest)
		r, err := s.DeleteTask(ctx, Identity(ctx), req.TaskID)
		return DeleteTaskResponse{Result: r, Err: err}, nil
	}
}

func MakeCreateNoteEndpoint(s noteservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(CreateNoteRequest)
		n, err := s.CreateNote(ctx, Identity(ctx), req.TaskID, req.Content)
		return CreateNoteResponse{Note: n, Err: err}, nil
	}
}

func MakeNotesEndpoint(s noteservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(NotesRequest)
		n, err := s.Notes(ctx, Identity(ctx), req.TaskID)
		return NotesResponse{Notes: n, Err: err}, nil
	}
}

func MakeDeleteNoteEndpoint(s noteservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(DeleteNoteRequest)
		r, err := s.DeleteNote(ctx, Identity(ctx), req.NoteID)
		return DeleteNoteResponse{Result: r, Err: err}, nil
	}
}

// Identity reads the caller from verified JWT claims in ctx. Missing or
// incomplete claims yield the anonymous identity.
func Identity(ctx context.Context) tasksvc.Auth {
	claims, ok := ctx.Value(kitjwt.JWTClaimsContextKey).(stdjwt.MapClaims)
	if !ok {
		return tasksvc.Auth{}
	}

	uuid, ok := claims["uuid"].(string)
	if !ok {
		return tasksvc.Auth{}
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return tasksvc.Auth{}
	}

	return tasksvc.Auth{AccessUUID: uuid, UserID: userID}
}

var (
	_ endpoint.Failer = CreateTaskResponse{}
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = UpdateTaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
	_ endpoint.Failer = CreateNoteResponse{}
	_ endpoint.Failer = NotesResponse{}
	_ endpoint.Failer = DeleteNoteResponse{}
)

type CreateTaskRequest struct {
	Title    string           `json:"title"`
	Priority tasksvc.Priority `json:"priority"`
	DueDate  *time.Time       `json:"dueDate,omitempty"`
}

type CreateTaskResponse struct {
	Task tasksvc.Task `json:"task"`
	Err  error        `json:"-"`
}

func (r CreateTaskResponse) Failed() error { return r.Err }

type TasksRequest struct {
	Options tasksvc.ListOptions
}

type TasksResponse struct {
	Tasks []tasksvc.Task `json:"tasks"`
	Err   error          `json:"-"`
}

func (r TasksResponse) Failed() error { return r.Err }

type TaskRequest struct {
	TaskID string
}

type TaskResponse struct {
	Task tasksvc.Task `json:"task"`
	Err  error        `json:"-"`
}

func (r TaskResponse) Failed() error { return r.Err }

type UpdateTaskRequest struct {
	TaskID    string            `json:"-"`
	Title     *string           `json:"title,omitempty"`
	Completed *bool             `json:"completed,omitempty"`
	Priority  *tasksvc.Priority `json:"priority,omitempty"`
	DueDate   *time.Time        `json:"dueDate,omitempty"`
}

func (r UpdateTaskRequest) Patch() tasksvc.TaskPatch {
	return tasksvc.TaskPatch{
		Title:     r.Title,
		Completed: r.Completed,
		Priority:  r.Priority,
		DueDate:   r.DueDate,
	}
}

type UpdateTaskResponse struct {
	Task tasksvc.Task `json:"task"`
	Err  error        `json:"-"`
}

func (r UpdateTaskResponse) Failed() error { return r.Err }

type DeleteTaskRequest struct {
	TaskID string
}

type DeleteTaskResponse struct {
	Result bool  `json:"result"`
	Err    error `json:"-"`
}

func (r DeleteTaskResponse) Failed() error { return r.Err }

type CreateNoteRequest struct {
	TaskID  string `json:"-"`
	Content string `json:"content"`
}

type CreateNoteResponse struct {
	Note tasksvc.Note `json:"note"`
	Err  error        `json:"-"`
}

func (r CreateNoteResponse) Failed() error { return r.Err }

type NotesRequest struct {
	TaskID string
}

type NotesResponse struct {
	Notes []tasksvc.Note `json:"notes"`
	Err   error          `json:"-"`
}

func (r NotesResponse) Failed() error { return r.Err }

type DeleteNoteRequest struct {
	NoteID string
}

type DeleteNoteResponse struct {
	Result bool  `json:"result"`
	Err    error `json:"-"`
}

func (r DeleteNoteResponse) Failed() error { return r.Err }
