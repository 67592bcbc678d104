package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/tasktransport"
	"google.golang.org/grpc"
)

// New discovers tasksvc instances through consul and balances every
// endpoint across them with retries.
func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (taskendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		instancer   = consulsd.NewInstancer(apiclient, logger, "tasksvc", tags, passingOnly)
	)

	balanced := func(pick func(taskendpoint.Set) endpoint.Endpoint) endpoint.Endpoint {
		endpointer := sd.NewEndpointer(instancer, factoryFor(pick, logger), logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	return taskendpoint.Set{
		CreateTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.CreateTaskEndpoint }),
		TasksEndpoint:      balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.TasksEndpoint }),
		TaskEndpoint:       balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.TaskEndpoint }),
		UpdateTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.UpdateTaskEndpoint }),
		DeleteTaskEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.DeleteTaskEndpoint }),
		CreateNoteEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.CreateNoteEndpoint }),
		NotesEndpoint:      balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.NotesEndpoint }),
		DeleteNoteEndpoint: balanced(func(s taskendpoint.Set) endpoint.Endpoint { return s.DeleteNoteEndpoint }),
	}, nil
}

func factoryFor(pick func(taskendpoint.Set) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		conn, err := grpc.Dial(instance, grpc.WithInsecure(), tasktransport.DialOption())
		if err != nil {
			return nil, nil, err
		}
		endpoints := tasktransport.NewGRPCClient(conn, logger)

		return pick(endpoints), conn, nil
	}
}
