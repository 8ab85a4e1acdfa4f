package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "DocShare API",
        "description": "Course access requests and document distribution",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and identity"},
        {"name": "AccessRequests", "description": "Course access request workflow"},
        {"name": "Grants", "description": "Approved course access"},
        {"name": "Courses", "description": "Course catalog"},
        {"name": "Distributions", "description": "Document distribution lifecycle and analytics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/access-requests": {
            "post": {
                "tags": ["AccessRequests"],
                "summary": "Request course access",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Pending request already exists"}
                }
            }
        },
        "/access-requests/mine": {
            "get": {
                "tags": ["AccessRequests"],
                "summary": "List my access requests",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/access-requests/incoming": {
            "get": {
                "tags": ["AccessRequests"],
                "summary": "List incoming access requests",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/access-requests/{id}/respond": {
            "post": {
                "tags": ["AccessRequests"],
                "summary": "Respond to an access request",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not the assigned module leader"},
                    "409": {"description": "Already responded"}
                }
            }
        },
        "/grants/accessible-courses": {
            "get": {
                "tags": ["Grants"],
                "summary": "List accessible courses",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "List courses",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/courses/{id}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get course",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/distributions": {
            "get": {
                "tags": ["Distributions"],
                "summary": "List distributions",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Distributions"],
                "summary": "Create distribution",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/distributions/{id}": {
            "get": {
                "tags": ["Distributions"],
                "summary": "Get distribution",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Access denied"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/distributions/{id}/files": {
            "post": {
                "tags": ["Distributions"],
                "summary": "Add files",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/distributions/{id}/files/upload": {
            "post": {
                "tags": ["Distributions"],
                "summary": "Upload file content",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Missing file"}
                }
            }
        },
        "/distributions/{id}/files/{file_id}": {
            "get": {
                "tags": ["Distributions"],
                "summary": "Download file content",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Download not allowed"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/distributions/{id}/share": {
            "post": {
                "tags": ["Distributions"],
                "summary": "Share with teacher",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/distributions/{id}/status": {
            "patch": {
                "tags": ["Distributions"],
                "summary": "Update status",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/distributions/{id}/permissions": {
            "put": {
                "tags": ["Distributions"],
                "summary": "Update permissions",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/distributions/{id}/access": {
            "post": {
                "tags": ["Distributions"],
                "summary": "Track access event",
                "responses": {
                    "204": {"description": "Recorded"}
                }
            }
        },
        "/distributions/{id}/export/access-report": {
            "get": {
                "tags": ["Distributions"],
                "summary": "Export access report (PDF)",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/distributions/{id}/export/audit-trail": {
            "get": {
                "tags": ["Distributions"],
                "summary": "Export audit trail (CSV)",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
