// Package apitest runs an in-memory Swiftel backend for tests.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"swiftel-client/internal/domain/auth"
	"swiftel-client/internal/domain/notification"
	"swiftel-client/internal/domain/request"
	"swiftel-client/internal/pkg/jwt"
	"swiftel-client/internal/pkg/jwt/jwttest"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type account struct {
	user     auth.User
	password string
}

// Backend mimics the REST and push endpoints the client talks to. Unlike
// the client it enforces roles, with verified tokens.
type Backend struct {
	Issuer *jwttest.Issuer

	t       testing.TB
	srv     *httptest.Server
	decoder *jwt.Decoder

	mu            sync.Mutex
	nextID        int64
	accounts      map[int64]*account
	requests      map[int64]*request.Request
	notifications map[int64]*notification.Notification
	calls         map[string]int
	sockets       map[*websocket.Conn]int64
}

func NewBackend(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer := jwttest.NewIssuer(t)
	b := &Backend{
		Issuer:        issuer,
		t:             t,
		decoder:       jwt.NewDecoder(jwt.WithPublicKey(issuer.PublicKey())),
		accounts:      make(map[int64]*account),
		requests:      make(map[int64]*request.Request),
		notifications: make(map[int64]*notification.Notification),
		calls:         make(map[string]int),
		sockets:       make(map[*websocket.Conn]int64),
	}
	b.srv = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)
	return b
}

// URL is the REST base, as configured in SWIFTEL_API_BASE_URL.
func (b *Backend) URL() string {
	return b.srv.URL + "/api"
}

func (b *Backend) Close() {
	b.mu.Lock()
	for conn := range b.sockets {
		conn.Close()
	}
	b.mu.Unlock()
	b.srv.Close()
}

// Calls returns how many times "METHOD /path" was served, path as routed
// (for example "GET /api/requests/:id").
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *Backend) AddUser(username, email, password string, role auth.Role) auth.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	u := auth.User{ID: b.nextID, Username: username, Email: email, Role: role, CreatedAt: time.Now().UTC()}
	b.accounts[u.ID] = &account{user: u, password: password}
	return u
}

// TokenFor mints a token the backend accepts for u.
func (b *Backend) TokenFor(u auth.User) string {
	return b.Issuer.Mint(b.t, u.ID, u.Username, u.Role.String())
}

func (b *Backend) AddRequest(r request.Request) request.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	r.ID = b.nextID
	if r.Status == "" {
		r.Status = request.StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := r
	b.requests[r.ID] = &cp
	return r
}

func (b *Backend) AddNotification(userID int64, message string) notification.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	n := notification.Notification{ID: b.nextID, UserID: userID, Message: message, CreatedAt: time.Now().UTC()}
	cp := n
	b.notifications[n.ID] = &cp
	return n
}

// Push sends payload to every open push socket and returns how many got it.
func (b *Backend) Push(payload string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for conn := range b.sockets {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err == nil {
			n++
		}
	}
	return n
}

// Sockets is the number of open push sockets.
func (b *Backend) Sockets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sockets)
}

// SocketUsers lists the user ID behind each open push socket, sorted.
func (b *Backend) SocketUsers() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int64, 0, len(b.sockets))
	for _, id := range b.sockets {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *Backend) routes() http.Handler {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		b.mu.Lock()
		b.calls[c.Request.Method+" "+c.FullPath()]++
		b.mu.Unlock()
	})

	api := r.Group("/api")
	api.GET("", b.push)
	api.POST("/auth/login", b.login)
	api.POST("/auth/register", b.register)

	authed := api.Group("", b.authenticate)
	authed.GET("/notifications", b.listNotifications)
	authed.PUT("/notifications/mark-all-read", b.markAllRead)
	authed.PUT("/notifications/:id/read", b.markRead)

	authed.GET("/requests/stats", b.stats)
	authed.GET("/requests/my-requests", b.requireRole(auth.RoleEmployee), b.myRequests)
	authed.GET("/requests", b.requireRole(auth.RoleAdmin, auth.RoleBoardMember), b.allRequests)
	authed.POST("/requests", b.requireRole(auth.RoleEmployee), b.createRequest)
	authed.GET("/requests/:id", b.getRequest)
	authed.POST("/requests/:id/decide", b.requireRole(auth.RoleAdmin, auth.RoleBoardMember), b.decide)

	authed.GET("/users/me", b.me)
	authed.PATCH("/users/me", b.updateMe)
	authed.GET("/users", b.requireRole(auth.RoleAdmin, auth.RoleBoardMember), b.listUsers)
	authed.PATCH("/users/:id", b.requireRole(auth.RoleAdmin), b.updateUser)
	authed.DELETE("/users/:id", b.requireRole(auth.RoleAdmin), b.deleteUser)
	return r
}

func (b *Backend) fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

func (b *Backend) authenticate(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	id, err := b.decoder.Decode(token)
	if err != nil {
		b.fail(c, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}
	c.Set("identity", id)
	c.Next()
}

func identity(c *gin.Context) auth.Identity {
	return c.MustGet("identity").(auth.Identity)
}

func (b *Backend) requireRole(roles ...auth.Role) gin.HandlerFunc {
	set := auth.NewRoleSet(roles...)
	return func(c *gin.Context) {
		if !set.Contains(identity(c).Role) {
			b.fail(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

func paramID(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	return id
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func (b *Backend) push(c *gin.Context) {
	id, err := b.decoder.Decode(c.Query("token"))
	if err != nil {
		b.fail(c, http.StatusUnauthorized, "invalid token")
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.sockets[conn] = id.ID
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.sockets, conn)
			b.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (b *Backend) login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": gin.H{"email": []string{"Invalid email"}}})
		return
	}
	b.mu.Lock()
	var found *account
	for _, a := range b.accounts {
		if a.user.Email == req.Email && a.password == req.Password {
			found = a
		}
	}
	b.mu.Unlock()
	if found == nil {
		b.fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	c.JSON(http.StatusOK, auth.LoginResponse{Token: b.TokenFor(found.user)})
}

func (b *Backend) register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": gin.H{"password": []string{"Password must be at least 6 characters"}}})
		return
	}
	b.mu.Lock()
	for _, a := range b.accounts {
		if a.user.Email == req.Email {
			b.mu.Unlock()
			b.fail(c, http.StatusBadRequest, "User already exists")
			return
		}
	}
	b.mu.Unlock()
	u := b.AddUser(req.Username, req.Email, req.Password, auth.RoleEmployee)
	c.JSON(http.StatusCreated, auth.RegisterResponse{Message: "User registered", User: &u})
}

func (b *Backend) listNotifications(c *gin.Context) {
	me := identity(c)
	b.mu.Lock()
	out := []notification.Notification{}
	for _, n := range b.notifications {
		if n.UserID == me.ID {
			out = append(out, *n)
		}
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (b *Backend) markRead(c *gin.Context) {
	me := identity(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok := b.notifications[paramID(c)]
	if !ok || n.UserID != me.ID {
		b.fail(c, http.StatusNotFound, "Notification not found")
		return
	}
	n.IsRead = true
	c.JSON(http.StatusOK, n)
}

func (b *Backend) markAllRead(c *gin.Context) {
	me := identity(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notifications {
		if n.UserID == me.ID {
			n.IsRead = true
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

func (b *Backend) stats(c *gin.Context) {
	me := identity(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	var s request.Stats
	for _, r := range b.requests {
		if me.IsApprover() {
			s.TotalRequests++
			switch r.Status {
			case request.StatusApproved:
				s.ApprovedRequests++
			case request.StatusRejected:
				s.RejectedRequests++
			default:
				s.PendingRequests++
			}
			continue
		}
		if r.EmployeeUsername != me.Username {
			continue
		}
		s.TotalRequests++
		switch r.Status {
		case request.StatusApproved:
			s.Approved++
		case request.StatusRejected:
			s.Rejected++
		default:
			s.Pending++
		}
	}
	if me.IsApprover() {
		for _, a := range b.accounts {
			if a.user.Role == auth.RoleEmployee {
				s.TotalEmployees++
			}
		}
	}
	c.JSON(http.StatusOK, s)
}

func (b *Backend) sortedRequests(keep func(*request.Request) bool) []request.Request {
	out := []request.Request{}
	for _, r := range b.requests {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (b *Backend) myRequests(c *gin.Context) {
	me := identity(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.sortedRequests(func(r *request.Request) bool { return r.EmployeeUsername == me.Username }))
}

func (b *Backend) allRequests(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusOK, b.sortedRequests(func(*request.Request) bool { return true }))
}

func (b *Backend) createRequest(c *gin.Context) {
	var req request.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		b.fail(c, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := req.Validate(); err != nil {
		b.fail(c, http.StatusBadRequest, err.Error())
		return
	}
	r := b.AddRequest(request.Request{
		Title:            req.Title,
		Description:      req.Description,
		Type:             req.Type,
		IsMonetary:       req.Type == request.TypeMonetary,
		Amount:           req.Amount,
		EmployeeUsername: identity(c).Username,
	})
	c.JSON(http.StatusCreated, r)
}

func (b *Backend) getRequest(c *gin.Context) {
	me := identity(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.requests[paramID(c)]
	if !ok || (!me.IsApprover() && r.EmployeeUsername != me.Username) {
		b.fail(c, http.StatusNotFound, "Request not found")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (b *Backend) decide(c *gin.Context) {
	me := identity(c)
	var req request.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		b.fail(c, http.StatusBadRequest, "Invalid decision")
		return
	}
	memberID, memberName := me.ID, me.Username
	if req.BoardMemberID != nil {
		if me.Role != auth.RoleAdmin {
			b.fail(c, http.StatusForbidden, "Only admins can edit another member's decision")
			return
		}
		memberID = *req.BoardMemberID
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[memberID]; ok {
		memberName = a.user.Username
	}
	r, ok := b.requests[paramID(c)]
	if !ok {
		b.fail(c, http.StatusNotFound, "Request not found")
		return
	}
	replaced := false
	for i := range r.Decisions {
		if r.Decisions[i].BoardMemberID == memberID {
			r.Decisions[i].Decision = req.Decision
			replaced = true
		}
	}
	if !replaced {
		r.Decisions = append(r.Decisions, request.Decision{BoardMemberID: memberID, Username: memberName, Decision: req.Decision})
	}
	r.Status = request.Status(req.Decision)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Request %d %s", r.ID, req.Decision)})
}

func (b *Backend) me(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[identity(c).ID]
	if !ok {
		b.fail(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, a.user)
}

func (b *Backend) updateMe(c *gin.Context) {
	var req auth.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		b.fail(c, http.StatusBadRequest, "Invalid profile")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[identity(c).ID]
	if !ok {
		b.fail(c, http.StatusNotFound, "User not found")
		return
	}
	if req.Username != nil {
		a.user.Username = *req.Username
	}
	if req.Email != nil {
		a.user.Email = *req.Email
	}
	if req.Password != nil {
		a.password = *req.Password
	}
	c.JSON(http.StatusOK, a.user)
}

func (b *Backend) listUsers(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []auth.User{}
	for _, a := range b.accounts {
		out = append(out, a.user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (b *Backend) updateUser(c *gin.Context) {
	var req auth.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		b.fail(c, http.StatusBadRequest, "Invalid user")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[paramID(c)]
	if !ok {
		b.fail(c, http.StatusNotFound, "User not found")
		return
	}
	if req.Username != nil {
		a.user.Username = *req.Username
	}
	if req.Email != nil {
		a.user.Email = *req.Email
	}
	if req.Role != nil {
		a.user.Role = *req.Role
	}
	c.JSON(http.StatusOK, a.user)
}

func (b *Backend) deleteUser(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := paramID(c)
	if _, ok := b.accounts[id]; !ok {
		b.fail(c, http.StatusNotFound, "User not found")
		return
	}
	delete(b.accounts, id)
	c.Status(http.StatusNoContent)
}
