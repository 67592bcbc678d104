package tasktransport

import (
	"context"
	"time"

	"github.com/ichigozero/tasknotes/tasksvc"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tasknotes.TaskService"

// Request and reply messages of tasknotes.TaskService. They are encoded with
// the json codec, so the field tags define the wire format.

type CreateTaskRequest struct {
	Title    string           `json:"title"`
	Priority tasksvc.Priority `json:"priority"`
	DueDate  *time.Time       `json:"dueDate,omitempty"`
}

type TasksRequest struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Sort     string `json:"sort,omitempty"`
}

type TaskRequest struct {
	TaskID string `json:"taskId"`
}

type UpdateTaskRequest struct {
	TaskID    string            `json:"taskId"`
	Title     *string           `json:"title,omitempty"`
	Completed *bool             `json:"completed,omitempty"`
	Priority  *tasksvc.Priority `json:"priority,omitempty"`
	DueDate   *time.Time        `json:"dueDate,omitempty"`
}

type DeleteTaskRequest struct {
	TaskID string `json:"taskId"`
}

type TaskReply struct {
	Task tasksvc.Task `json:"task"`
	Err  string       `json:"err,omitempty"`
}

type TasksReply struct {
	Tasks []tasksvc.Task `json:"tasks"`
	Err   string         `json:"err,omitempty"`
}

type CreateNoteRequest struct {
	TaskID  string `json:"taskId"`
	Content string `json:"content"`
}

type NotesRequest struct {
	TaskID string `json:"taskId"`
}

type DeleteNoteRequest struct {
	NoteID string `json:"noteId"`
}

type NoteReply struct {
	Note tasksvc.Note `json:"note"`
	Err  string       `json:"err,omitempty"`
}

type NotesReply struct {
	Notes []tasksvc.Note `json:"notes"`
	Err   string         `json:"err,omitempty"`
}

type DeleteReply struct {
	Result bool   `json:"result"`
	Err    string `json:"err,omitempty"`
}

// TaskServer is the server API of tasknotes.TaskService.
type TaskServer interface {
	CreateTask(context.Context, *CreateTaskRequest) (*TaskReply, error)
	Tasks(context.Context, *TasksRequest) (*TasksReply, error)
	Task(context.Context, *TaskRequest) (*TaskReply, error)
	UpdateTask(context.Context, *UpdateTaskRequest) (*TaskReply, error)
	DeleteTask(context.Context, *DeleteTaskRequest) (*DeleteReply, error)
	CreateNote(context.Context, *CreateNoteRequest) (*NoteReply, error)
	Notes(context.Context, *NotesRequest) (*NotesReply, error)
	DeleteNote(context.Context, *DeleteNoteRequest) (*DeleteReply, error)
}

func RegisterTaskServer(s *grpc.Server, srv TaskServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateTask", func(s TaskServer, ctx context.Context, in *CreateTaskRequest) (interface{}, error) {
			return s.CreateTask(ctx, in)
		}),
		unary("Tasks", func(s TaskServer, ctx context.Context, in *TasksRequest) (interface{}, error) {
			return s.Tasks(ctx, in)
		}),
		unary("Task", func(s TaskServer, ctx context.Context, in *TaskRequest) (interface{}, error) {
			return s.Task(ctx, in)
		}),
		unary("UpdateTask", func(s TaskServer, ctx context.Context, in *UpdateTaskRequest) (interface{}, error) {
			return s.UpdateTask(ctx, in)
		}),
		unary("DeleteTask", func(s TaskServer, ctx context.Context, in *DeleteTaskRequest) (interface{}, error) {
			return s.DeleteTask(ctx, in)
		}),
		unary("CreateNote", func(s TaskServer, ctx context.Context, in *CreateNoteRequest) (interface{}, error) {
			return s.CreateNote(ctx, in)
		}),
		unary("Notes", func(s TaskServer, ctx context.Context, in *NotesRequest) (interface{}, error) {
			return s.Notes(ctx, in)
		}),
		unary("DeleteNote", func(s TaskServer, ctx context.Context, in *DeleteNoteRequest) (interface{}, error) {
			return s.DeleteNote(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tasknotes",
}

func unary[Req any](method string, call func(TaskServer, context.Context, *Req) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TaskServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TaskServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
