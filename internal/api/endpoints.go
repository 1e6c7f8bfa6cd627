package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/learnhome/client/internal/models"
)

type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type SignupRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (models.User, Result) {
	var out models.User
	res := c.do(ctx, http.MethodPost, "/api/signup", req, &out)
	return out, res
}

func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, Result) {
	var out LoginResponse
	body := map[string]string{"username": username, "password": password}
	res := c.do(ctx, http.MethodPost, "/api/login", body, &out)
	return out, res
}

func (c *Client) Me(ctx context.Context) (models.User, Result) {
	var out models.User
	res := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out)
	return out, res
}

func (c *Client) Profile(ctx context.Context, userID string) (models.User, Result) {
	var out models.User
	res := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil, &out)
	return out, res
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, Result) {
	var out []models.User
	res := c.do(ctx, http.MethodGet, "/api/users/search?q="+url.QueryEscape(query), nil, &out)
	return out, res
}

// ConnectionStatus reports whether a user currently holds a live socket.
func (c *Client) ConnectionStatus(ctx context.Context, userID string) (bool, Result) {
	var out struct {
		Connected bool `json:"connected"`
	}
	res := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/status", nil, &out)
	return out.Connected, res
}

// UnreadTotal is the cross-thread unread message count.
func (c *Client) UnreadTotal(ctx context.Context) (int, Result) {
	var out struct {
		Total int `json:"total"`
	}
	res := c.do(ctx, http.MethodGet, "/api/messages/unread", nil, &out)
	return out.Total, res
}

type Conversation struct {
	Messages []models.Message `json:"messages"`
	Unread   int              `json:"unread"`
}

// LastConversation fetches the thread with one peer plus its unread count.
func (c *Client) LastConversation(ctx context.Context, peerID string) (Conversation, Result) {
	var out Conversation
	res := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(peerID), nil, &out)
	return out, res
}

func (c *Client) SendMessage(ctx context.Context, receiverID, content string, files []string) (models.Message, Result) {
	var out models.Message
	body := map[string]interface{}{"receiver_id": receiverID, "content": content, "files": files}
	res := c.do(ctx, http.MethodPost, "/api/messages", body, &out)
	return out, res
}

func (c *Client) MarkThreadRead(ctx context.Context, peerID string) Result {
	return c.do(ctx, http.MethodPost, "/api/conversations/"+url.PathEscape(peerID)+"/read", nil, nil)
}

func (c *Client) Contacts(ctx context.Context) ([]models.User, Result) {
	var out []models.User
	res := c.do(ctx, http.MethodGet, "/api/contacts", nil, &out)
	return out, res
}

func (c *Client) PendingInvitations(ctx context.Context) ([]models.Invitation, Result) {
	var out []models.Invitation
	res := c.do(ctx, http.MethodGet, "/api/invitations", nil, &out)
	return out, res
}

func (c *Client) SendInvitation(ctx context.Context, receiverID string) Result {
	body := map[string]string{"receiver_id": receiverID}
	return c.do(ctx, http.MethodPost, "/api/invitations", body, nil)
}

func (c *Client) AcceptInvitation(ctx context.Context, senderID string) Result {
	return c.do(ctx, http.MethodPost, "/api/invitations/"+url.PathEscape(senderID)+"/accept", nil, nil)
}

func (c *Client) DeclineInvitation(ctx context.Context, senderID string) Result {
	return c.do(ctx, http.MethodPost, "/api/invitations/"+url.PathEscape(senderID)+"/decline", nil, nil)
}

func (c *Client) RemoveContact(ctx context.Context, peerID string) Result {
	return c.do(ctx, http.MethodDelete, "/api/contacts/"+url.PathEscape(peerID), nil, nil)
}

func (c *Client) Demands(ctx context.Context) ([]models.TeachingDemand, Result) {
	var out []models.TeachingDemand
	res := c.do(ctx, http.MethodGet, "/api/demands", nil, &out)
	return out, res
}

func (c *Client) SendDemand(ctx context.Context, teacherID string) (models.TeachingDemand, Result) {
	var out models.TeachingDemand
	body := map[string]string{"receiver_id": teacherID}
	res := c.do(ctx, http.MethodPost, "/api/demands", body, &out)
	return out, res
}

func (c *Client) AcceptDemand(ctx context.Context, demandID string) Result {
	return c.do(ctx, http.MethodPost, "/api/demands/"+url.PathEscape(demandID)+"/accept", nil, nil)
}

func (c *Client) CancelDemand(ctx context.Context, demandID string) Result {
	return c.do(ctx, http.MethodPost, "/api/demands/"+url.PathEscape(demandID)+"/cancel", nil, nil)
}

// EventsBetween lists the caller's calendar events beginning in [from, to).
func (c *Client) EventsBetween(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, Result) {
	var out []models.CalendarEvent
	q := url.Values{}
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))
	res := c.do(ctx, http.MethodGet, "/api/events?"+q.Encode(), nil, &out)
	return out, res
}

func (c *Client) CreateEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, Result) {
	var out models.CalendarEvent
	res := c.do(ctx, http.MethodPost, "/api/events", ev, &out)
	return out, res
}

func (c *Client) ModifyEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, Result) {
	var out models.CalendarEvent
	res := c.do(ctx, http.MethodPut, "/api/events/"+url.PathEscape(ev.ID), ev, &out)
	return out, res
}

func (c *Client) DeleteEvent(ctx context.Context, eventID string) Result {
	return c.do(ctx, http.MethodDelete, "/api/events/"+url.PathEscape(eventID), nil, nil)
}

func (c *Client) AcceptEvent(ctx context.Context, eventID string) Result {
	return c.do(ctx, http.MethodPost, "/api/events/"+url.PathEscape(eventID)+"/accept", nil, nil)
}

func (c *Client) DeclineEvent(ctx context.Context, eventID string) Result {
	return c.do(ctx, http.MethodPost, "/api/events/"+url.PathEscape(eventID)+"/decline", nil, nil)
}

func (c *Client) Tasks(ctx context.Context) ([]models.Task, Result) {
	var out []models.Task
	res := c.do(ctx, http.MethodGet, "/api/tasks", nil, &out)
	return out, res
}

func (c *Client) CreateTask(ctx context.Context, task models.Task) (models.Task, Result) {
	var out models.Task
	res := c.do(ctx, http.MethodPost, "/api/tasks", task, &out)
	return out, res
}

func (c *Client) CompleteTask(ctx context.Context, taskID string) Result {
	return c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(taskID)+"/complete", nil, nil)
}

func (c *Client) ValidateTask(ctx context.Context, taskID string) Result {
	return c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(taskID)+"/validate", nil, nil)
}
