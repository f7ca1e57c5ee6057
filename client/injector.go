package client

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sched-sim/sched-sim/broker"
	"github.com/sched-sim/sched-sim/sim"
)

// Injector submits add-process requests over one connection and collects the
// per-request acks. Specs are sent in order; the broker answers each on the
// same connection before the next is read.
type Injector struct {
	url string
	log *logrus.Entry
}

// NewInjector creates an injector for the given /ws URL.
func NewInjector(url string) *Injector {
	return &Injector{
		url: url,
		log: logrus.WithField("component", "injector"),
	}
}

// Run connects as an injector and submits every spec, returning one ack per
// spec. A transport failure aborts the remainder; acks already received are
// returned alongside the error.
func (i *Injector) Run(ctx context.Context, specs []sim.ProcessSpec) ([]broker.AddProcessAck, error) {
	conn, err := dial(ctx, i.url, broker.RoleInjector)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	i.log.Infof("connected to %s", i.url)

	acks := make([]broker.AddProcessAck, 0, len(specs))
	for _, spec := range specs {
		req := broker.AddProcessRequest{
			ArrivalTick: spec.ArrivalTick,
			BurstTotal:  spec.BurstTotal,
			Priority:    spec.Priority,
		}
		if err := conn.WriteJSON(req); err != nil {
			return acks, fmt.Errorf("sending request: %w", err)
		}
		var ack broker.AddProcessAck
		if err := conn.ReadJSON(&ack); err != nil {
			return acks, fmt.Errorf("reading ack: %w", err)
		}
		if ack.Accepted {
			i.log.Infof("accepted: P%d (arrival=%d burst=%d prio=%d)",
				ack.ID, spec.ArrivalTick, spec.BurstTotal, spec.Priority)
		} else {
			i.log.Warnf("rejected: %s", ack.Reason)
		}
		acks = append(acks, ack)
	}
	return acks, nil
}
