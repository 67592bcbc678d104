package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authendpoint"
	"github.com/ichigozero/tasknotes/authsvc/pkg/authtransport"
)

func New(apiclient consulsd.Client, logger log.Logger, retryMax int, retryTimeout time.Duration) (authendpoint.Set, error) {
	var (
		tags        = []string{}
		passingOnly = true
		endpoints   = authendpoint.Set{}
		instancer   = consulsd.NewInstancer(apiclient, logger, "authsvc", tags, passingOnly)
	)
	balanced := func(pick func(authendpoint.Set) endpoint.Endpoint) endpoint.Endpoint {
		factory := factoryFor(pick, logger)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	endpoints.SignUpEndpoint = balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.SignUpEndpoint })
	endpoints.SignInEndpoint = balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.SignInEndpoint })
	endpoints.AnonymousEndpoint = balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.AnonymousEndpoint })
	endpoints.LogoutEndpoint = balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.LogoutEndpoint })
	endpoints.RefreshEndpoint = balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.RefreshEndpoint })
	endpoints.ValidateEndpoint = balanced(func(s authendpoint.Set) endpoint.Endpoint { return s.ValidateEndpoint })

	return endpoints, nil
}

func factoryFor(pick func(authendpoint.Set) endpoint.Endpoint, logger log.Logger) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		endpoints, err := authtransport.NewHTTPClient(instance, logger)
		if err != nil {
			return nil, nil, err
		}
		return pick(endpoints), nil, nil
	}
}
