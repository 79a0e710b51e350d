package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/models"
)

func newStubService(flow func(ctx context.Context, cardNumber string) (*models.MotorCredentials, error)) *Service {
	config := common.NewDefaultConfig()
	return &Service{
		config: &config.Auth,
		logger: common.GetLogger(),
		flow:   flow,
	}
}

func TestAuthenticateSerializesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	creds := &models.MotorCredentials{PublicKey: "pk-shared"}

	svc := newStubService(func(ctx context.Context, cardNumber string) (*models.MotorCredentials, error) {
		calls.Add(1)
		<-release
		return creds, nil
	})

	var wg sync.WaitGroup
	results := make([]*models.MotorCredentials, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = svc.Authenticate(context.Background(), "111")
	}()

	// Let the first call claim the in-flight slot before the second arrives.
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = svc.Authenticate(context.Background(), "222")
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("flow invocations = %d, want 1 (second caller must join the first attempt)", got)
	}
	for i := range results {
		if errs[i] != nil {
			t.Errorf("call %d error = %v", i, errs[i])
		}
		if results[i] != creds {
			t.Errorf("call %d got %+v, want the shared result", i, results[i])
		}
	}
}

func TestAuthenticateSharesFailure(t *testing.T) {
	failure := errors.New("login broke")
	release := make(chan struct{})
	var calls atomic.Int32

	svc := newStubService(func(ctx context.Context, cardNumber string) (*models.MotorCredentials, error) {
		calls.Add(1)
		<-release
		return nil, failure
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.Authenticate(context.Background(), "111")
	}()
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = svc.Authenticate(context.Background(), "111")
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, failure) {
			t.Errorf("call %d error = %v, want shared failure", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("flow invocations = %d, want 1", got)
	}
}

func TestAuthenticateSequentialCallsRunSeparately(t *testing.T) {
	var calls atomic.Int32
	svc := newStubService(func(ctx context.Context, cardNumber string) (*models.MotorCredentials, error) {
		calls.Add(1)
		return &models.MotorCredentials{PublicKey: "pk"}, nil
	})

	if _, err := svc.Authenticate(context.Background(), "111"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(context.Background(), "111"); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("flow invocations = %d, want 2 (the guard only covers overlapping calls)", got)
	}
}

func TestAuthenticateWaiterHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	var calls atomic.Int32

	svc := newStubService(func(ctx context.Context, cardNumber string) (*models.MotorCredentials, error) {
		calls.Add(1)
		<-release
		return &models.MotorCredentials{}, nil
	})

	go svc.Authenticate(context.Background(), "111")
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Authenticate(ctx, "222")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
