package oss

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/aipara_account_server/config"
)

type Client struct {
	bucket     *oss.Bucket
	bucketName string
	endpoint   string
	cdnDomain  string
	now        func() time.Time
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		bucket:     bucket,
		bucketName: cfg.BucketName,
		endpoint:   client.Config.Endpoint,
		cdnDomain:  cfg.CDNDomain,
		now:        time.Now,
	}, nil
}

// AvatarKey 头像对象路径 avatars/{uid}/{unix}{ext}
func (c *Client) AvatarKey(uid, ext string) string {
	return fmt.Sprintf("avatars/%s/%d%s", uid, c.now().Unix(), ext)
}

// UploadAvatar 上传用户头像，返回可访问 URL
func (c *Client) UploadAvatar(uid string, data []byte, ext string) (string, error) {
	objectKey := c.AvatarKey(uid, ext)

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data), oss.ContentType(ContentType(ext)))
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	return c.GetURL(objectKey), nil
}

// DeleteByURL 删除旧头像，非本 bucket 的地址直接忽略
func (c *Client) DeleteByURL(url string) error {
	if !c.Owns(url) {
		return nil
	}
	if err := c.bucket.DeleteObject(c.ExtractObjectKey(url)); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetURL 获取文件访问 URL
func (c *Client) GetURL(objectKey string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cdnDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, hostOf(c.endpoint), objectKey)
}

// Owns 判断 URL 是否指向本 bucket
func (c *Client) Owns(url string) bool {
	if c.cdnDomain != "" && strings.HasPrefix(url, "https://"+c.cdnDomain+"/") {
		return true
	}
	return strings.HasPrefix(url, fmt.Sprintf("https://%s.%s/", c.bucketName, hostOf(c.endpoint)))
}

// ExtractObjectKey 从 URL 中提取 object key
func (c *Client) ExtractObjectKey(url string) string {
	if c.cdnDomain != "" {
		prefix := fmt.Sprintf("https://%s/", c.cdnDomain)
		if strings.HasPrefix(url, prefix) {
			return url[len(prefix):]
		}
	}

	// https://bucket-name.endpoint/path/to/object
	parts := strings.Split(url, "/")
	if len(parts) >= 4 {
		return strings.Join(parts[3:], "/")
	}

	return path.Base(url)
}

// ContentType 根据扩展名获取 Content-Type
func ContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// AllowedAvatarExt 头像允许的扩展名
func AllowedAvatarExt(ext string) bool {
	return ContentType(ext) != "application/octet-stream"
}

func hostOf(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return strings.TrimSuffix(endpoint, "/")
}
