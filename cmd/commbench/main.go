package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/contest-communication/config"
	"github.com/d60-Lab/contest-communication/internal/model"
	"github.com/d60-Lab/contest-communication/internal/repository"
	"github.com/d60-Lab/contest-communication/internal/service"
	"github.com/d60-Lab/contest-communication/internal/worker"
	"github.com/d60-Lab/contest-communication/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// 压测：CONC 个调用方并发提问、查询、回答，统计各操作延迟分位与队列峰值
func main() {
	cfg := must(config.Load())
	N := envInt("N", 2000)
	CONC := envInt("CONC", 32)
	USERS := envInt("USERS", 50)

	pool := must(database.Connect(cfg.Database))
	defer pool.Close()
	dispatcher := worker.NewDispatcher(cfg.Dispatcher.Workers, cfg.Dispatcher.QueueSize)
	stop := dispatcher.Start()
	svc := service.NewCommunicationService(pool, dispatcher)
	ctx := context.Background()

	// seed tokens: tokens[0] is the admin
	tokens := make([]string, USERS)
	for i := range tokens {
		tokens[i] = uuid.NewString()
	}
	err := pool.WithConn(ctx, func(db *gorm.DB) error {
		users := repository.NewUserRepository()
		for i, tok := range tokens {
			if err := users.Create(db, tok, i == 0); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}

	var (
		mu                sync.Mutex
		askRecs, listRecs []time.Duration
		answerRecs        []time.Duration
		failures          int
	)
	record := func(dst *[]time.Duration, d time.Duration, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures++
			return
		}
		*dst = append(*dst, d)
	}

	// 采样 goroutine 独占 peak，退出时经 sampled 交回
	quitSample := make(chan struct{})
	sampled := make(chan int, 1)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		peak := 0
		for {
			select {
			case <-ticker.C:
				if q := dispatcher.QueueLen(); q > peak {
					peak = q
				}
			case <-quitSample:
				sampled <- peak
				return
			}
		}
	}()

	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	t0 := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				tok := tokens[1+i%(USERS-1)]

				st := time.Now()
				q, err := svc.AddQuestion(ctx, tok, model.AskQuestion{Content: fmt.Sprintf("question %d", i)})
				record(&askRecs, time.Since(st), err)
				if err != nil {
					continue
				}

				st = time.Now()
				_, err = svc.ListQuestions(ctx, tok)
				record(&listRecs, time.Since(st), err)

				if i%4 == 0 {
					st = time.Now()
					_, err = svc.AnswerQuestion(ctx, tokens[0], q.ID, "answer")
					record(&answerRecs, time.Since(st), err)
				}
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)
	close(quitSample)
	maxQ := <-sampled
	_ = stop(ctx)

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 {
			return 0
		}
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}
	line := func(name string, vs []time.Duration) {
		fmt.Printf("%-8s samples=%d p50=%v p95=%v p99=%v\n", name, len(vs), pct(vs, 0.50), pct(vs, 0.95), pct(vs, 0.99))
	}

	fmt.Printf("N=%d, CONC=%d, USERS=%d, workers=%d, conns=%d\n", N, CONC, USERS, cfg.Dispatcher.Workers, cfg.Database.MaxOpenConns)
	fmt.Printf("total: %v, failures: %d, max queue: %d\n", total, failures, maxQ)
	line("ask", askRecs)
	line("list", listRecs)
	line("answer", answerRecs)
	stats := pool.Stats()
	fmt.Printf("pool: wait count=%d, wait total=%v\n", stats.WaitCount, stats.WaitDuration)
}
