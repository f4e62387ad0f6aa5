package adaptor

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/ponyo877/callwatch/callpb"
	"github.com/ponyo877/callwatch/server/domain"
)

// HeaderUserID identifies the caller on the HTTP API.
const HeaderUserID = "X-User-ID"

// newProfile leaves Role empty when the client sent none so a stored role can fill it.
func newProfile(userID, name, image, role string) domain.Profile {
	p := domain.Profile{
		UserID: strings.TrimSpace(userID),
		Name:   strings.TrimSpace(name),
		Image:  strings.TrimSpace(image),
	}
	if role != "" {
		p.Role = domain.ParseRole(role)
	}
	return p
}

func profileFromMetadata(ctx context.Context) domain.Profile {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Profile{}
	}
	first := func(key string) string {
		if v := md.Get(key); len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return newProfile(
		first(callpb.MetadataUserID),
		first(callpb.MetadataUserName),
		first(callpb.MetadataUserImage),
		first(callpb.MetadataRole),
	)
}

func profileFromQuery(r *http.Request) domain.Profile {
	q := r.URL.Query()
	return newProfile(q.Get("userId"), q.Get("userName"), q.Get("userImage"), q.Get("role"))
}

func userIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}
