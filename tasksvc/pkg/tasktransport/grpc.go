package tasktransport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	grpctransport "github.com/go-kit/kit/transport/grpc"
	"github.com/ichigozero/tasknotes/tasksvc"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskendpoint"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
)

type grpcServer struct {
	createTask grpctransport.Handler
	tasks      grpctransport.Handler
	task       grpctransport.Handler
	updateTask grpctransport.Handler
	deleteTask grpctransport.Handler
	createNote grpctransport.Handler
	notes      grpctransport.Handler
	deleteNote grpctransport.Handler
}

func NewGRPCServer(endpoints taskendpoint.Set, secret []byte, logger log.Logger) TaskServer {
	options := []grpctransport.ServerOption{
		grpctransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		grpctransport.ServerBefore(kitjwt.GRPCToContext()),
	}

	identify := Identify(secret)

	return &grpcServer{
		createTask: grpctransport.NewServer(
			identify(endpoints.CreateTaskEndpoint),
			decodeGRPCCreateTaskRequest,
			encodeGRPCTaskResponse,
			options...,
		),
		tasks: grpctransport.NewServer(
			identify(endpoints.TasksEndpoint),
			decodeGRPCTasksRequest,
			encodeGRPCTasksResponse,
			options...,
		),
		task: grpctransport.NewServer(
			identify(endpoints.TaskEndpoint),
			decodeGRPCTaskRequest,
			encodeGRPCTaskResponse,
			options...,
		),
		updateTask: grpctransport.NewServer(
			identify(endpoints.UpdateTaskEndpoint),
			decodeGRPCUpdateTaskRequest,
			encodeGRPCTaskResponse,
			options...,
		),
		deleteTask: grpctransport.NewServer(
			identify(endpoints.DeleteTaskEndpoint),
			decodeGRPCDeleteTaskRequest,
			encodeGRPCDeleteResponse,
			options...,
		),
		createNote: grpctransport.NewServer(
			identify(endpoints.CreateNoteEndpoint),
			decodeGRPCCreateNoteRequest,
			encodeGRPCNoteResponse,
			options...,
		),
		notes: grpctransport.NewServer(
			identify(endpoints.NotesEndpoint),
			decodeGRPCNotesRequest,
			encodeGRPCNotesResponse,
			options...,
		),
		deleteNote: grpctransport.NewServer(
			identify(endpoints.DeleteNoteEndpoint),
			decodeGRPCDeleteNoteRequest,
			encodeGRPCDeleteResponse,
			options...,
		),
	}
}

func (s *grpcServer) CreateTask(ctx context.Context, req *CreateTaskRequest) (*TaskReply, error) {
	_, rep, err := s.createTask.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*TaskReply), nil
}

func (s *grpcServer) Tasks(ctx context.Context, req *TasksRequest) (*TasksReply, error) {
	_, rep, err := s.tasks.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*TasksReply), nil
}

func (s *grpcServer) Task(ctx context.Context, req *TaskRequest) (*TaskReply, error) {
	_, rep, err := s.task.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*TaskReply), nil
}

func (s *grpcServer) UpdateTask(ctx context.Context, req *UpdateTaskRequest) (*TaskReply, error) {
	_, rep, err := s.updateTask.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*TaskReply), nil
}

func (s *grpcServer) DeleteTask(ctx context.Context, req *DeleteTaskRequest) (*DeleteReply, error) {
	_, rep, err := s.deleteTask.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*DeleteReply), nil
}

func (s *grpcServer) CreateNote(ctx context.Context, req *CreateNoteRequest) (*NoteReply, error) {
	_, rep, err := s.createNote.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*NoteReply), nil
}

func (s *grpcServer) Notes(ctx context.Context, req *NotesRequest) (*NotesReply, error) {
	_, rep, err := s.notes.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*NotesReply), nil
}

func (s *grpcServer) DeleteNote(ctx context.Context, req *DeleteNoteRequest) (*DeleteReply, error) {
	_, rep, err := s.deleteNote.ServeGRPC(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.(*DeleteReply), nil
}

// NewGRPCClient returns a Set backed by the remote service on conn. The
// connection must use the json content-subtype, see DialOption.
func NewGRPCClient(conn *grpc.ClientConn, logger log.Logger) taskendpoint.Set {
	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	options := []grpctransport.ClientOption{
		grpctransport.ClientBefore(kitjwt.ContextToGRPC()),
	}

	client := func(method string, enc grpctransport.EncodeRequestFunc, dec grpctransport.DecodeResponseFunc, reply interface{}) endpoint.Endpoint {
		var e endpoint.Endpoint
		e = grpctransport.NewClient(conn, ServiceName, method, enc, dec, reply, options...).Endpoint()
		e = limiter(e)
		e = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    method,
			Timeout: 30 * time.Second,
		}))(e)
		return e
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: client("CreateTask", encodeGRPCCreateTaskRequest, decodeGRPCCreateTaskResponse, TaskReply{}),
		TasksEndpoint:      client("Tasks", encodeGRPCTasksRequest, decodeGRPCTasksResponse, TasksReply{}),
		TaskEndpoint:       client("Task", encodeGRPCTaskRequest, decodeGRPCTaskResponse, TaskReply{}),
		UpdateTaskEndpoint: client("UpdateTask", encodeGRPCUpdateTaskRequest, decodeGRPCUpdateTaskResponse, TaskReply{}),
		DeleteTaskEndpoint: client("DeleteTask", encodeGRPCDeleteTaskRequest, decodeGRPCDeleteTaskResponse, DeleteReply{}),
		CreateNoteEndpoint: client("CreateNote", encodeGRPCCreateNoteRequest, decodeGRPCCreateNoteResponse, NoteReply{}),
		NotesEndpoint:      client("Notes", encodeGRPCNotesRequest, decodeGRPCNotesResponse, NotesReply{}),
		DeleteNoteEndpoint: client("DeleteNote", encodeGRPCDeleteNoteRequest, decodeGRPCDeleteNoteResponse, DeleteReply{}),
	}
}

// DialOption makes a client connection speak the json codec.
func DialOption() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName))
}

func decodeGRPCCreateTaskRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*CreateTaskRequest)
	return taskendpoint.CreateTaskRequest{
		Title:    req.Title,
		Priority: req.Priority,
		DueDate:  req.DueDate,
	}, nil
}

func encodeGRPCCreateTaskRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.CreateTaskRequest)
	return &CreateTaskRequest{
		Title:    req.Title,
		Priority: req.Priority,
		DueDate:  req.DueDate,
	}, nil
}

func decodeGRPCCreateTaskResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*TaskReply)
	return taskendpoint.CreateTaskResponse{Task: reply.Task, Err: str2err(reply.Err)}, nil
}

// encodeGRPCTaskResponse serves every endpoint whose reply is a single task.
func encodeGRPCTaskResponse(_ context.Context, response interface{}) (interface{}, error) {
	var (
		task tasksvc.Task
		err  error
	)
	switch resp := response.(type) {
	case taskendpoint.CreateTaskResponse:
		task, err = resp.Task, resp.Err
	case taskendpoint.TaskResponse:
		task, err = resp.Task, resp.Err
	case taskendpoint.UpdateTaskResponse:
		task, err = resp.Task, resp.Err
	default:
		return nil, fmt.Errorf("unexpected response %T", response)
	}
	return &TaskReply{Task: task, Err: err2str(err)}, nil
}

func decodeGRPCTasksRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*TasksRequest)
	return taskendpoint.TasksRequest{
		Options: tasksvc.ListOptions{
			Status:   tasksvc.StatusFilter(req.Status),
			Priority: tasksvc.Priority(req.Priority),
			SortBy:   tasksvc.SortKey(req.Sort),
		},
	}, nil
}

func encodeGRPCTasksRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.TasksRequest)
	return &TasksRequest{
		Status:   string(req.Options.Status),
		Priority: string(req.Options.Priority),
		Sort:     string(req.Options.SortBy),
	}, nil
}

func encodeGRPCTasksResponse(_ context.Context, response interface{}) (interface{}, error) {
	resp := response.(taskendpoint.TasksResponse)
	return &TasksReply{Tasks: resp.Tasks, Err: err2str(resp.Err)}, nil
}

func decodeGRPCTasksResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*TasksReply)
	tasks := reply.Tasks
	if tasks == nil && reply.Err == "" {
		tasks = []tasksvc.Task{}
	}
	return taskendpoint.TasksResponse{Tasks: tasks, Err: str2err(reply.Err)}, nil
}

func decodeGRPCTaskRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*TaskRequest)
	return taskendpoint.TaskRequest{TaskID: req.TaskID}, nil
}

func encodeGRPCTaskRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.TaskRequest)
	return &TaskRequest{TaskID: req.TaskID}, nil
}

func decodeGRPCTaskResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*TaskReply)
	return taskendpoint.TaskResponse{Task: reply.Task, Err: str2err(reply.Err)}, nil
}

func decodeGRPCUpdateTaskRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*UpdateTaskRequest)
	return taskendpoint.UpdateTaskRequest{
		TaskID:    req.TaskID,
		Title:     req.Title,
		Completed: req.Completed,
		Priority:  req.Priority,
		DueDate:   req.DueDate,
	}, nil
}

func encodeGRPCUpdateTaskRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.UpdateTaskRequest)
	return &UpdateTaskRequest{
		TaskID:    req.TaskID,
		Title:     req.Title,
		Completed: req.Completed,
		Priority:  req.Priority,
		DueDate:   req.DueDate,
	}, nil
}

func decodeGRPCUpdateTaskResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*TaskReply)
	return taskendpoint.UpdateTaskResponse{Task: reply.Task, Err: str2err(reply.Err)}, nil
}

func decodeGRPCDeleteTaskRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*DeleteTaskRequest)
	return taskendpoint.DeleteTaskRequest{TaskID: req.TaskID}, nil
}

func encodeGRPCDeleteTaskRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.DeleteTaskRequest)
	return &DeleteTaskRequest{TaskID: req.TaskID}, nil
}

func decodeGRPCDeleteTaskResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*DeleteReply)
	return taskendpoint.DeleteTaskResponse{Result: reply.Result, Err: str2err(reply.Err)}, nil
}

// encodeGRPCDeleteResponse serves both delete endpoints.
func encodeGRPCDeleteResponse(_ context.Context, response interface{}) (interface{}, error) {
	switch resp := response.(type) {
	case taskendpoint.DeleteTaskResponse:
		return &DeleteReply{Result: resp.Result, Err: err2str(resp.Err)}, nil
	case taskendpoint.DeleteNoteResponse:
		return &DeleteReply{Result: resp.Result, Err: err2str(resp.Err)}, nil
	}
	return nil, fmt.Errorf("unexpected response %T", response)
}

func decodeGRPCCreateNoteRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*CreateNoteRequest)
	return taskendpoint.CreateNoteRequest{TaskID: req.TaskID, Content: req.Content}, nil
}

func encodeGRPCCreateNoteRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.CreateNoteRequest)
	return &CreateNoteRequest{TaskID: req.TaskID, Content: req.Content}, nil
}

func encodeGRPCNoteResponse(_ context.Context, response interface{}) (interface{}, error) {
	resp := response.(taskendpoint.CreateNoteResponse)
	return &NoteReply{Note: resp.Note, Err: err2str(resp.Err)}, nil
}

func decodeGRPCCreateNoteResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*NoteReply)
	return taskendpoint.CreateNoteResponse{Note: reply.Note, Err: str2err(reply.Err)}, nil
}

func decodeGRPCNotesRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*NotesRequest)
	return taskendpoint.NotesRequest{TaskID: req.TaskID}, nil
}

func encodeGRPCNotesRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.NotesRequest)
	return &NotesRequest{TaskID: req.TaskID}, nil
}

func encodeGRPCNotesResponse(_ context.Context, response interface{}) (interface{}, error) {
	resp := response.(taskendpoint.NotesResponse)
	return &NotesReply{Notes: resp.Notes, Err: err2str(resp.Err)}, nil
}

func decodeGRPCNotesResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*NotesReply)
	notes := reply.Notes
	if notes == nil && reply.Err == "" {
		notes = []tasksvc.Note{}
	}
	return taskendpoint.NotesResponse{Notes: notes, Err: str2err(reply.Err)}, nil
}

func decodeGRPCDeleteNoteRequest(_ context.Context, grpcReq interface{}) (interface{}, error) {
	req := grpcReq.(*DeleteNoteRequest)
	return taskendpoint.DeleteNoteRequest{NoteID: req.NoteID}, nil
}

func encodeGRPCDeleteNoteRequest(_ context.Context, request interface{}) (interface{}, error) {
	req := request.(taskendpoint.DeleteNoteRequest)
	return &DeleteNoteRequest{NoteID: req.NoteID}, nil
}

func decodeGRPCDeleteNoteResponse(_ context.Context, grpcReply interface{}) (interface{}, error) {
	reply := grpcReply.(*DeleteReply)
	return taskendpoint.DeleteNoteResponse{Result: reply.Result, Err: str2err(reply.Err)}, nil
}

var knownErrors = []error{
	tasksvc.ErrTaskNotFound,
	tasksvc.ErrNoteNotFound,
	tasksvc.ErrNotFound,
	tasksvc.ErrUnauthenticated,
	tasksvc.ErrForbidden,
	tasksvc.ErrInvalidArgument,
}

// str2err restores the sentinel behind an error message so callers can
// still match it with errors.Is, including messages that wrap one.
func str2err(s string) error {
	if s == "" {
		return nil
	}

	for _, known := range knownErrors {
		if s == known.Error() {
			return known
		}
	}
	for _, known := range knownErrors {
		if prefix := strings.TrimSuffix(s, ": "+known.Error()); prefix != s {
			return fmt.Errorf("%s: %w", prefix, known)
		}
	}

	return errors.New(s)
}

func err2str(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
