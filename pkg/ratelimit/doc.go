// Package ratelimit paces outbound calls to a rate limited origin.
//
// A CallRateLimiter guarantees a minimum interval between the end of one
// call and the start of the next:
//
//	limiter := ratelimit.New(ratelimit.Config{
//	    MinDelay:       time.Second,
//	    MaxRandomBonus: 50 * time.Millisecond,
//	}, logger)
//
//	if err := limiter.WaitAsNeeded(ctx); err != nil {
//	    return err // ctx ended while waiting
//	}
//	resp, err := doCall()
//	limiter.ResetLastCallTime()
//
// Borrow adds to the interval required before the next call, for example
// after the origin signalled pressure through a response header. The backlog
// is consumed only by a call that actually waits.
//
// The random bonus in [0, MaxRandomBonus) is added to every wait so that
// independent limiters sharing one origin do not fire in lockstep.
//
// The limiter is in-process only. Processes sharing an origin each pace on
// their own.
package ratelimit
