// wsbench 针对 /ws 网关的压测工具
//
// 连接走正常的令牌握手，所以先用 accounts 文件或 -register 批量
// 注册压测账号；messaging 模式利用服务端的发送者回显测消息往返延迟
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/schollz/progressbar/v3"
)

// Config 压测配置
type Config struct {
	Mode     string        // connect-only / messaging / typing
	WSTarget string        // WebSocket 地址
	APIBase  string        // HTTP API 地址，用于注册和登录
	Conns    int           // 连接数
	Duration time.Duration // 压测持续时间
	Ramp     time.Duration // 爬坡时间
	MsgRate  int           // 每连接每分钟消息数
	Payload  int           // 消息体大小（字节）
	Register bool          // 压测前批量注册账号
	Prefix   string        // 压测账号用户名前缀
	Output   string        // text / json
	Verbose  bool
}

// Stats 运行期累计的统计量
type Stats struct {
	mu sync.Mutex

	Attempts     int64
	Connected    int64
	Failed       int64
	Current      int64
	Disconnects  int64
	MsgSent      int64
	MsgFailed    int64
	FramesByType map[string]int64
	Errors       map[string]int64

	ConnLatencies []int64 // 握手到成功，纳秒
	EchoLatencies []int64 // 发送到回显，纳秒

	Start time.Time
	End   time.Time
}

func (s *Stats) countFrame(frameType string) {
	s.mu.Lock()
	s.FramesByType[frameType]++
	s.mu.Unlock()
}

func (s *Stats) countError(err error) {
	msg := err.Error()
	if len(msg) > 60 {
		msg = msg[:60]
	}
	s.mu.Lock()
	s.Errors[msg]++
	s.mu.Unlock()
}

// LatencySummary 延迟分布摘要，毫秒
type LatencySummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	StdDev float64 `json:"std_dev"`
}

// Result 压测结果
type Result struct {
	Mode        string           `json:"mode"`
	Target      string           `json:"target"`
	Attempts    int64            `json:"attempts"`
	Connected   int64            `json:"connected"`
	Failed      int64            `json:"failed"`
	SuccessRate float64          `json:"success_rate_percent"`
	Disconnects int64            `json:"disconnects"`
	MsgSent     int64            `json:"messages_sent"`
	MsgFailed   int64            `json:"messages_failed"`
	Frames      map[string]int64 `json:"frames_by_type"`
	ConnLatency LatencySummary   `json:"conn_latency_ms"`
	EchoLatency LatencySummary   `json:"echo_latency_ms,omitempty"`
	Errors      map[string]int64 `json:"errors,omitempty"`
	Seconds     float64          `json:"seconds"`
}

// account 一个压测账号及其令牌
type account struct {
	username string
	password string
	token    string
}

type bencher struct {
	cfg   Config
	stats *Stats
}

func main() {
	cfg := parseFlags()

	stats := &Stats{
		FramesByType: make(map[string]int64),
		Errors:       make(map[string]int64),
		Start:        time.Now(),
	}
	b := &bencher{cfg: cfg, stats: stats}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n中断，正在收尾...")
		cancel()
	}()

	fmt.Printf("wsbench: mode=%s conns=%d duration=%s target=%s\n\n",
		cfg.Mode, cfg.Conns, cfg.Duration, cfg.WSTarget)

	accounts, err := b.prepareAccounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "账号准备失败: %v\n", err)
		os.Exit(1)
	}

	b.run(ctx, accounts)
	stats.End = time.Now()

	result := b.summarize()
	if cfg.Output == "json" {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		printText(result)
	}
}

func parseFlags() Config {
	cfg := Config{}
	flag.StringVar(&cfg.Mode, "mode", "connect-only", "压测模式: connect-only, messaging, typing")
	flag.StringVar(&cfg.WSTarget, "target", "ws://localhost:8080/ws", "WebSocket 地址")
	flag.StringVar(&cfg.APIBase, "api", "http://localhost:8080/api/v1", "HTTP API 地址")
	flag.IntVar(&cfg.Conns, "conns", 500, "连接数")
	flag.DurationVar(&cfg.Duration, "duration", 2*time.Minute, "压测持续时间")
	flag.DurationVar(&cfg.Ramp, "ramp", 30*time.Second, "爬坡时间")
	flag.IntVar(&cfg.MsgRate, "msg-rate", 12, "每连接每分钟消息数")
	flag.IntVar(&cfg.Payload, "payload", 128, "消息体大小（字节）")
	flag.BoolVar(&cfg.Register, "register", false, "压测前批量注册账号")
	flag.StringVar(&cfg.Prefix, "prefix", "bench", "压测账号用户名前缀")
	flag.StringVar(&cfg.Output, "output", "text", "输出格式: text, json")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "详细输出")
	flag.Parse()
	return cfg
}

// prepareAccounts 注册（可选）并登录全部压测账号，拿到各自的访问令牌
func (b *bencher) prepareAccounts(ctx context.Context) ([]*account, error) {
	accounts := make([]*account, b.cfg.Conns)
	for i := range accounts {
		accounts[i] = &account{
			username: fmt.Sprintf("%s_%06d", b.cfg.Prefix, i),
			password: "bench-pass-1",
		}
	}

	client := &http.Client{Timeout: 10 * time.Second}

	if b.cfg.Register {
		bar := progressbar.NewOptions(len(accounts),
			progressbar.OptionSetDescription("注册账号"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
		)
		for _, acc := range accounts {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// 已存在返回 409，也算准备就绪
			if err := b.post(client, "/auth/register", acc, nil); err != nil {
				return nil, fmt.Errorf("register %s: %w", acc.username, err)
			}
			bar.Add(1)
		}
		bar.Finish()
		fmt.Println()
	}

	bar := progressbar.NewOptions(len(accounts),
		progressbar.OptionSetDescription("登录获取令牌"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
	)
	for _, acc := range accounts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var resp struct {
			Data struct {
				AccessToken string `json:"access_token"`
			} `json:"data"`
		}
		if err := b.post(client, "/auth/login", acc, &resp); err != nil {
			return nil, fmt.Errorf("login %s: %w", acc.username, err)
		}
		acc.token = resp.Data.AccessToken
		bar.Add(1)
	}
	bar.Finish()
	fmt.Println()

	return accounts, nil
}

func (b *bencher) post(client *http.Client, path string, acc *account, out any) error {
	body, _ := json.Marshal(map[string]string{
		"username": acc.username,
		"password": acc.password,
	})
	resp, err := client.Post(b.cfg.APIBase+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// run 爬坡建连，之后维持连接并按模式产生负载
func (b *bencher) run(ctx context.Context, accounts []*account) {
	interval := b.cfg.Ramp / time.Duration(len(accounts))
	if interval <= 0 {
		interval = time.Millisecond
	}

	bar := progressbar.NewOptions(len(accounts),
		progressbar.OptionSetDescription("建立连接"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("conn"),
	)

	var wg sync.WaitGroup
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deadline := time.Now().Add(b.cfg.Duration)

	for i, acc := range accounts {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-ticker.C:
		}

		wg.Add(1)
		go func(idx int, acc *account) {
			defer wg.Done()
			defer bar.Add(1)
			// 给每个连接指定一个聊天对象，相邻账号两两配对
			peerIdx := idx ^ 1
			if peerIdx >= len(accounts) {
				peerIdx = 0
			}
			b.runConnection(ctx, acc, uint64(peerIdx+1), deadline)
		}(i, acc)
	}

	reportTicker := time.NewTicker(10 * time.Second)
	defer reportTicker.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			<-done
			return
		case <-reportTicker.C:
			b.printProgress()
		}
	}
}

// runConnection 一条连接的完整生命周期：握手、读循环、按模式发帧
func (b *bencher) runConnection(ctx context.Context, acc *account, peerID uint64, deadline time.Time) {
	atomic.AddInt64(&b.stats.Attempts, 1)

	target := b.cfg.WSTarget + "?token=" + url.QueryEscape(acc.token)
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}

	start := time.Now()
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		atomic.AddInt64(&b.stats.Failed, 1)
		b.stats.countError(err)
		if b.cfg.Verbose {
			fmt.Printf("连接失败 %s: %v\n", acc.username, err)
		}
		return
	}
	defer conn.Close()

	b.stats.mu.Lock()
	b.stats.ConnLatencies = append(b.stats.ConnLatencies, time.Since(start).Nanoseconds())
	b.stats.mu.Unlock()
	atomic.AddInt64(&b.stats.Connected, 1)
	atomic.AddInt64(&b.stats.Current, 1)
	defer atomic.AddInt64(&b.stats.Current, -1)

	var writeMu sync.Mutex

	// 读循环：计数各通道的下行帧，messaging 模式下用回显算往返延迟
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					atomic.AddInt64(&b.stats.Disconnects, 1)
				}
				return
			}

			var frame struct {
				Type string `json:"type"`
				Data struct {
					Content string `json:"content"`
				} `json:"data"`
			}
			if json.Unmarshal(data, &frame) != nil {
				continue
			}
			b.stats.countFrame(frame.Type)

			// 回显帧的 content 以发送时刻的纳秒时间戳开头
			if frame.Type == "messages" {
				if ns, ok := parseEchoStamp(frame.Data.Content); ok {
					b.stats.mu.Lock()
					b.stats.EchoLatencies = append(b.stats.EchoLatencies, time.Now().UnixNano()-ns)
					b.stats.mu.Unlock()
				}
			}
		}
	}()

	var loadTicker *time.Ticker
	if b.cfg.Mode != "connect-only" && b.cfg.MsgRate > 0 {
		loadTicker = time.NewTicker(time.Minute / time.Duration(b.cfg.MsgRate))
		defer loadTicker.Stop()
	}

	timeout := time.After(time.Until(deadline))
	for {
		var tick <-chan time.Time
		if loadTicker != nil {
			tick = loadTicker.C
		}
		select {
		case <-ctx.Done():
			return
		case <-timeout:
			return
		case <-readDone:
			return
		case <-tick:
			switch b.cfg.Mode {
			case "messaging":
				b.sendChat(conn, &writeMu, peerID)
			case "typing":
				b.sendTyping(conn, &writeMu, peerID)
			}
		}
	}
}

func (b *bencher) sendChat(conn *websocket.Conn, writeMu *sync.Mutex, peerID uint64) {
	padding := strings.Repeat("x", b.cfg.Payload)
	content := fmt.Sprintf("%d|%s", time.Now().UnixNano(), padding)

	frame := map[string]any{
		"type": "message",
		"data": map[string]any{
			"recipient_id": peerID,
			"content":      content,
		},
	}
	if err := b.writeJSON(conn, writeMu, frame); err != nil {
		atomic.AddInt64(&b.stats.MsgFailed, 1)
		return
	}
	atomic.AddInt64(&b.stats.MsgSent, 1)
}

func (b *bencher) sendTyping(conn *websocket.Conn, writeMu *sync.Mutex, peerID uint64) {
	frame := map[string]any{
		"type": "typing",
		"data": map[string]any{
			"recipient_id": peerID,
			"typing":       rand.Intn(4) != 0, // 周期性混入 stop
		},
	}
	if err := b.writeJSON(conn, writeMu, frame); err != nil {
		atomic.AddInt64(&b.stats.MsgFailed, 1)
		return
	}
	atomic.AddInt64(&b.stats.MsgSent, 1)
}

func (b *bencher) writeJSON(conn *websocket.Conn, writeMu *sync.Mutex, frame any) error {
	data, _ := json.Marshal(frame)
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// parseEchoStamp 从 "纳秒|填充" 里取出发送时刻
func parseEchoStamp(content string) (int64, bool) {
	idx := strings.IndexByte(content, '|')
	if idx <= 0 {
		return 0, false
	}
	var ns int64
	for _, c := range content[:idx] {
		if c < '0' || c > '9' {
			return 0, false
		}
		ns = ns*10 + int64(c-'0')
	}
	return ns, true
}

func (b *bencher) printProgress() {
	fmt.Printf("[%s] 在线: %d | 成功: %d | 失败: %d | 断开: %d | 发送: %d\n",
		time.Since(b.stats.Start).Round(time.Second),
		atomic.LoadInt64(&b.stats.Current),
		atomic.LoadInt64(&b.stats.Connected),
		atomic.LoadInt64(&b.stats.Failed),
		atomic.LoadInt64(&b.stats.Disconnects),
		atomic.LoadInt64(&b.stats.MsgSent))
}

func (b *bencher) summarize() Result {
	s := b.stats
	result := Result{
		Mode:        b.cfg.Mode,
		Target:      b.cfg.WSTarget,
		Attempts:    s.Attempts,
		Connected:   s.Connected,
		Failed:      s.Failed,
		Disconnects: s.Disconnects,
		MsgSent:     s.MsgSent,
		MsgFailed:   s.MsgFailed,
		Frames:      s.FramesByType,
		Errors:      s.Errors,
		Seconds:     s.End.Sub(s.Start).Seconds(),
	}
	if s.Attempts > 0 {
		result.SuccessRate = float64(s.Connected) / float64(s.Attempts) * 100
	}
	result.ConnLatency = summarizeLatencies(s.ConnLatencies)
	result.EchoLatency = summarizeLatencies(s.EchoLatencies)
	return result
}

func summarizeLatencies(latencies []int64) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	toMs := func(ns int64) float64 { return float64(ns) / 1e6 }

	var sum int64
	for _, v := range sorted {
		sum += v
	}
	avg := float64(sum) / float64(len(sorted))

	var variance float64
	for _, v := range sorted {
		d := float64(v) - avg
		variance += d * d
	}
	variance /= float64(len(sorted))

	return LatencySummary{
		Min:    toMs(sorted[0]),
		Max:    toMs(sorted[len(sorted)-1]),
		Avg:    toMs(int64(avg)),
		P50:    toMs(sorted[len(sorted)*50/100]),
		P95:    toMs(sorted[len(sorted)*95/100]),
		P99:    toMs(sorted[len(sorted)*99/100]),
		StdDev: toMs(int64(math.Sqrt(variance))),
	}
}

func printText(r Result) {
	fmt.Println()
	fmt.Println("================ 压测结果 ================")
	fmt.Printf("模式:           %s\n", r.Mode)
	fmt.Printf("尝试/成功/失败: %d / %d / %d (%.2f%%)\n", r.Attempts, r.Connected, r.Failed, r.SuccessRate)
	fmt.Printf("意外断开:       %d\n", r.Disconnects)
	fmt.Println()
	fmt.Println("--- 握手延迟 (ms) ---")
	fmt.Printf("min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		r.ConnLatency.Min, r.ConnLatency.Avg, r.ConnLatency.P50,
		r.ConnLatency.P95, r.ConnLatency.P99, r.ConnLatency.Max)
	if r.MsgSent > 0 {
		fmt.Println()
		fmt.Printf("--- 上行帧: 发送 %d, 失败 %d ---\n", r.MsgSent, r.MsgFailed)
		if r.EchoLatency.Max > 0 {
			fmt.Println("--- 回显往返延迟 (ms) ---")
			fmt.Printf("min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
				r.EchoLatency.Min, r.EchoLatency.Avg, r.EchoLatency.P50,
				r.EchoLatency.P95, r.EchoLatency.P99, r.EchoLatency.Max)
		}
	}
	if len(r.Frames) > 0 {
		fmt.Println()
		fmt.Println("--- 下行帧 ---")
		for frameType, n := range r.Frames {
			fmt.Printf("%-10s %d\n", frameType, n)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Println()
		fmt.Println("--- 错误 ---")
		for msg, n := range r.Errors {
			fmt.Printf("%s: %d\n", msg, n)
		}
	}
	fmt.Println()
	fmt.Printf("运行 %.2f 秒\n", r.Seconds)
	fmt.Println("==========================================")
}
