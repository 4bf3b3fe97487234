package api

import "strconv"

// MeshRequest is the VPC Lattice (payload version 2.0) request shape.
// Headers and query parameters are always multi-valued.
type MeshRequest struct {
	Version               string              `json:"version"`
	Path                  string              `json:"path"`
	Method                string              `json:"method"`
	Headers               map[string][]string `json:"headers,omitempty"`
	QueryStringParameters map[string][]string `json:"queryStringParameters,omitempty"`
	Body                  string              `json:"body,omitempty"`
	IsBase64Encoded       bool                `json:"isBase64Encoded"`
	RequestContext        MeshRequestContext  `json:"requestContext"`
}

// MeshRequestContext identifies the service network, service and target group of a mesh request.
type MeshRequestContext struct {
	ServiceNetworkARN string              `json:"serviceNetworkArn"`
	ServiceARN        string              `json:"serviceArn"`
	TargetGroupARN    string              `json:"targetGroupArn"`
	Identity          MeshRequestIdentity `json:"identity"`
	Region            string              `json:"region"`
	TimeEpoch         string              `json:"timeEpoch"`
}

// MeshRequestIdentity is the caller block of a mesh request.
type MeshRequestIdentity struct {
	SourceVPCARN   string `json:"sourceVpcArn,omitempty"`
	Type           string `json:"type,omitempty"`
	Principal      string `json:"principal,omitempty"`
	PrincipalOrgID string `json:"principalOrgID,omitempty"`
	SessionName    string `json:"sessionName,omitempty"`
	X509SubjectCN  string `json:"x509SubjectCn,omitempty"`
}

// MeshResponse is the VPC Lattice response shape. Headers are single-valued.
type MeshResponse struct {
	StatusCode        int               `json:"statusCode"`
	StatusDescription string            `json:"statusDescription,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
	Body              string            `json:"body,omitempty"`
	IsBase64Encoded   bool              `json:"isBase64Encoded"`
}

// timeEpoch parses the microsecond epoch VPC Lattice sends as a string.
// Unparseable values yield zero.
func (c MeshRequestContext) timeEpoch() int64 {
	n, err := strconv.ParseInt(c.TimeEpoch, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
