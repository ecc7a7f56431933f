// Package redis is a minimal RESP2 client covering the commands the rate
// limiter needs.
package redis

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

const defaultIOTimeout = 2 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Client keeps a small pool of authenticated connections. Broken connections
// are closed instead of being returned to the pool.
type Client struct {
	addr     string
	password string
	db       int
	pool     chan *conn
	dial     func(ctx context.Context) (net.Conn, error)
}

type conn struct {
	net.Conn
	rw *bufio.ReadWriter
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}

	c := &Client{
		addr:     cfg.Addr,
		password: cfg.Password,
		db:       cfg.DB,
		pool:     make(chan *conn, cfg.PoolSize),
	}
	c.dial = func(ctx context.Context) (net.Conn, error) {
		d := net.Dialer{Timeout: time.Second}
		return d.DialContext(ctx, "tcp", c.addr)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultIOTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func (c *Client) Close() error {
	for {
		select {
		case cn := <-c.pool:
			_ = cn.Close()
		default:
			return nil
		}
	}
}

func (c *Client) Ping(ctx context.Context) error {
	replies, err := c.pipeline(ctx, []string{"PING"})
	if err != nil {
		return err
	}
	if replies[0].typ != respSimpleString || replies[0].str != "PONG" {
		return fmt.Errorf("unexpected PING reply: %s", replies[0])
	}
	return nil
}

// IncrExpire increments key and sets its TTL in one round trip. The TTL is
// only applied when the key has none, so the window never slides.
func (c *Client) IncrExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}

	replies, err := c.pipeline(ctx,
		[]string{"INCR", key},
		[]string{"EXPIRE", key, strconv.FormatInt(seconds, 10), "NX"},
	)
	if err != nil {
		return 0, err
	}
	if replies[0].typ != respInteger {
		return 0, fmt.Errorf("unexpected INCR reply: %s", replies[0])
	}
	return replies[0].num, nil
}

// pipeline writes every command before reading the replies in order. A server
// error reply fails the call but keeps the connection.
func (c *Client) pipeline(ctx context.Context, cmds ...[]string) ([]resp, error) {
	cn, err := c.get(ctx)
	if err != nil {
		return nil, err
	}

	replies, err := roundTrip(ctx, cn, cmds...)
	if err != nil {
		var srvErr serverError
		if errors.As(err, &srvErr) {
			c.put(cn)
		} else {
			_ = cn.Close()
		}
		return nil, err
	}
	c.put(cn)
	return replies, nil
}

func (c *Client) get(ctx context.Context) (*conn, error) {
	select {
	case cn := <-c.pool:
		return cn, nil
	default:
	}

	nc, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	cn := &conn{Conn: nc, rw: bufio.NewReadWriter(bufio.NewReader(nc), bufio.NewWriter(nc))}

	var setup [][]string
	if c.password != "" {
		setup = append(setup, []string{"AUTH", c.password})
	}
	if c.db != 0 {
		setup = append(setup, []string{"SELECT", strconv.Itoa(c.db)})
	}
	if len(setup) > 0 {
		if _, err := roundTrip(ctx, cn, setup...); err != nil {
			_ = nc.Close()
			return nil, err
		}
	}
	return cn, nil
}

func (c *Client) put(cn *conn) {
	select {
	case c.pool <- cn:
	default:
		_ = cn.Close()
	}
}

func roundTrip(ctx context.Context, cn *conn, cmds ...[]string) ([]resp, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultIOTimeout)
	}
	_ = cn.SetDeadline(deadline)

	for _, cmd := range cmds {
		if err := writeCommand(cn.rw.Writer, cmd); err != nil {
			return nil, err
		}
	}
	if err := cn.rw.Flush(); err != nil {
		return nil, err
	}

	replies := make([]resp, 0, len(cmds))
	var firstErr error
	for range cmds {
		r, err := readReply(cn.rw.Reader)
		if err != nil {
			return nil, err
		}
		if r.typ == respError && firstErr == nil {
			firstErr = serverError(r.str)
		}
		replies = append(replies, r)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return replies, nil
}

type serverError string

func (e serverError) Error() string { return "redis: " + string(e) }

func writeCommand(w *bufio.Writer, args []string) error {
	if _, err := fmt.Fprintf(w, "*%d\r\n", len(args)); err != nil {
		return err
	}
	for _, arg := range args {
		if _, err := fmt.Fprintf(w, "$%d\r\n%s\r\n", len(arg), arg); err != nil {
			return err
		}
	}
	return nil
}

type respType byte

const (
	respSimpleString respType = '+'
	respError        respType = '-'
	respInteger      respType = ':'
	respBulkString   respType = '$'
)

type resp struct {
	typ respType
	str string
	num int64
}

func (r resp) String() string {
	switch r.typ {
	case respInteger:
		return ":" + strconv.FormatInt(r.num, 10)
	case respSimpleString, respError, respBulkString:
		return string(r.typ) + r.str
	default:
		return "?"
	}
}

func readLine(rd *bufio.Reader) (string, error) {
	line, err := rd.ReadString('\n')
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(line, "\r\n") {
		return "", errors.New("redis: invalid line ending")
	}
	return line[:len(line)-2], nil
}

func readReply(rd *bufio.Reader) (resp, error) {
	b, err := rd.ReadByte()
	if err != nil {
		return resp{}, err
	}
	line, err := readLine(rd)
	if err != nil {
		return resp{}, err
	}

	switch typ := respType(b); typ {
	case respSimpleString, respError:
		return resp{typ: typ, str: line}, nil
	case respInteger:
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return resp{}, err
		}
		return resp{typ: respInteger, num: n}, nil
	case respBulkString:
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return resp{}, err
		}
		if n < 0 {
			return resp{typ: respBulkString}, nil
		}
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(rd, buf); err != nil {
			return resp{}, err
		}
		if string(buf[n:]) != "\r\n" {
			return resp{}, errors.New("redis: invalid bulk string ending")
		}
		return resp{typ: respBulkString, str: string(buf[:n])}, nil
	default:
		return resp{}, fmt.Errorf("redis: unsupported reply type %q", b)
	}
}
